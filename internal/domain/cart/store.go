package cart

import (
	"errors"
	"net/url"
	"sync"

	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidProduct  = errors.New("invalid product")
)

// 明細のキー。同じ商品＋バリエーションは必ず同じキーになる。
// IDはエスケープするので ":" を含んでいても衝突しない。
func ItemKey(productID string, variantID string) string {
	if variantID == "" {
		return url.QueryEscape(productID)
	}
	return url.QueryEscape(productID) + ":" + url.QueryEscape(variantID)
}

// Store はセッションに1つのカート。
// 変更は AddItem / UpdateQuantity / RemoveItem / Clear だけで行い、
// 合計は変更と同じロックの中で再計算する。
type Store struct {
	mu      sync.RWMutex
	items   []model.CartItem
	total   decimal.Decimal
	version uint64

	subMu     sync.Mutex
	nextSubID int
	subs      map[int]func(model.CartState)
}

func NewStore() *Store {
	return &Store{
		items: make([]model.CartItem, 0),
		total: decimal.Zero,
		subs:  make(map[int]func(model.CartState)),
	}
}

// Restore は保存済みの状態から作り直す。
// 数量0以下は捨て、同じキーはまとめ、合計は必ず再計算する。
func Restore(state model.CartState) *Store {
	s := NewStore()
	for _, it := range state.Items {
		if it.Quantity < 1 || it.Product.ID == "" {
			continue
		}
		variantID := ""
		if it.Variant != nil {
			variantID = it.Variant.ID
		}
		it.Key = ItemKey(it.Product.ID, variantID)
		if i := s.indexOf(it.Key); i >= 0 {
			s.items[i].Quantity += it.Quantity
			continue
		}
		s.items = append(s.items, it.Clone())
	}
	s.recompute()
	s.version = state.Version
	return s
}

// 同じキーがあれば数量を足し、無ければ末尾に追加
func (s *Store) AddItem(product model.ProductRef, variant *model.VariantRef, quantity int64) (model.CartState, error) {
	if product.ID == "" {
		return s.State(), ErrInvalidProduct
	}
	if quantity < 1 {
		return s.State(), ErrInvalidQuantity
	}

	variantID := ""
	if variant != nil {
		variantID = variant.ID
	}
	key := ItemKey(product.ID, variantID)

	s.mu.Lock()
	if i := s.indexOf(key); i >= 0 {
		s.items[i].Quantity += quantity
	} else {
		it := model.CartItem{Key: key, Product: product, Variant: variant, Quantity: quantity}
		s.items = append(s.items, it.Clone())
	}
	state := s.commitLocked()
	s.mu.Unlock()

	s.notify(state)
	return state, nil
}

// 0以下なら削除。キーが無ければ何もしない。
func (s *Store) UpdateQuantity(key string, quantity int64) model.CartState {
	if quantity <= 0 {
		return s.RemoveItem(key)
	}

	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		state := s.stateLocked()
		s.mu.Unlock()
		return state
	}
	s.items[i].Quantity = quantity
	state := s.commitLocked()
	s.mu.Unlock()

	s.notify(state)
	return state
}

// キーが無ければ何もしない
func (s *Store) RemoveItem(key string) model.CartState {
	s.mu.Lock()
	i := s.indexOf(key)
	if i < 0 {
		state := s.stateLocked()
		s.mu.Unlock()
		return state
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	state := s.commitLocked()
	s.mu.Unlock()

	s.notify(state)
	return state
}

func (s *Store) Clear() model.CartState {
	s.mu.Lock()
	s.items = make([]model.CartItem, 0)
	state := s.commitLocked()
	s.mu.Unlock()

	s.notify(state)
	return state
}

// 読み取り専用のコピーを返す
func (s *Store) State() model.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stateLocked()
}

// 数量の合計（行数ではない）
func (s *Store) TotalItemCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

// Subscribe は変更後の状態を受け取る関数を登録する。
// 呼び出しはロックの外で、変更した goroutine 上で行われる。
// 順番は保証しないので、受け取る側は CartState.Version で新旧を判断する。
func (s *Store) Subscribe(fn func(model.CartState)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(state model.CartState) {
	s.subMu.Lock()
	fns := make([]func(model.CartState), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}

func (s *Store) indexOf(key string) int {
	for i, it := range s.items {
		if it.Key == key {
			return i
		}
	}
	return -1
}

func (s *Store) commitLocked() model.CartState {
	s.recompute()
	s.version++
	return s.stateLocked()
}

func (s *Store) recompute() {
	total := decimal.Zero
	for _, it := range s.items {
		total = total.Add(it.LineTotal())
	}
	s.total = total
}

func (s *Store) stateLocked() model.CartState {
	items := make([]model.CartItem, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, it.Clone())
	}
	return model.CartState{Items: items, Total: s.total, Version: s.version}
}
