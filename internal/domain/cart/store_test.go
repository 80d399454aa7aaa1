package cart_test

import (
	"math/rand"
	"strconv"
	"sync"
	"testing"

	"storefront/internal/domain/cart"
	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =====================
// helper
// =====================

func price(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func product(id string, p string) model.ProductRef {
	ref := model.ProductRef{ID: id, Title: "Product " + id}
	if p != "" {
		ref.Price = price(p)
	}
	return ref
}

func variant(id string, p string) *model.VariantRef {
	v := &model.VariantRef{ID: id, Title: "Variant " + id}
	if p != "" {
		v.Price = price(p)
	}
	return v
}

// 合計と明細の整合
func assertInvariants(t *testing.T, s model.CartState) {
	t.Helper()

	sum := decimal.Zero
	seen := map[string]bool{}
	for _, it := range s.Items {
		assert.GreaterOrEqual(t, it.Quantity, int64(1), "quantity must be >= 1")
		assert.False(t, seen[it.Key], "duplicate key %s", it.Key)
		seen[it.Key] = true
		sum = sum.Add(it.EffectivePrice().Mul(decimal.NewFromInt(it.Quantity)))
	}
	assert.True(t, sum.Equal(s.Total), "total=%s sum=%s", s.Total, sum)
}

// =====================
// AddItem
// =====================

func TestStore_AddItem_MergesSameKey(t *testing.T) {
	s := cart.NewStore()

	_, err := s.AddItem(product("P", "10"), variant("V", ""), 2)
	require.NoError(t, err)
	st, err := s.AddItem(product("P", "10"), variant("V", ""), 3)
	require.NoError(t, err)

	require.Len(t, st.Items, 1)
	assert.Equal(t, int64(5), st.Items[0].Quantity)
	assert.Equal(t, "P:V", st.Items[0].Key)
	assert.True(t, decimal.NewFromInt(50).Equal(st.Total))
	assertInvariants(t, st)
}

func TestStore_AddItem_DifferentVariantsAreSeparateLines(t *testing.T) {
	s := cart.NewStore()

	_, _ = s.AddItem(product("P", "10"), variant("S", ""), 1)
	_, _ = s.AddItem(product("P", "10"), variant("M", "12"), 1)
	st, _ := s.AddItem(product("P", "10"), nil, 1)

	require.Len(t, st.Items, 3)
	assert.Equal(t, []string{"P:S", "P:M", "P"}, []string{st.Items[0].Key, st.Items[1].Key, st.Items[2].Key})
	assert.True(t, decimal.NewFromInt(32).Equal(st.Total))
}

func TestStore_AddItem_Invalid(t *testing.T) {
	s := cart.NewStore()

	_, err := s.AddItem(product("P", "10"), nil, 0)
	assert.ErrorIs(t, err, cart.ErrInvalidQuantity)

	_, err = s.AddItem(model.ProductRef{}, nil, 1)
	assert.ErrorIs(t, err, cart.ErrInvalidProduct)

	assert.True(t, s.State().IsEmpty())
	assert.Equal(t, uint64(0), s.State().Version)
}

func TestStore_EffectivePriceFallback(t *testing.T) {
	s := cart.NewStore()

	// バリエーション価格が優先
	_, _ = s.AddItem(product("A", "10"), variant("V", "7.5"), 2)
	// 価格なしは0
	st, _ := s.AddItem(product("B", ""), nil, 3)

	require.Len(t, st.Items, 2)
	assert.Equal(t, "7.5", st.Items[0].EffectivePrice().String())
	assert.True(t, st.Items[1].EffectivePrice().IsZero())
	assert.True(t, decimal.NewFromInt(15).Equal(st.Total))
}

// =====================
// UpdateQuantity / RemoveItem / Clear
// =====================

func TestStore_UpdateQuantity(t *testing.T) {
	s := cart.NewStore()
	_, _ = s.AddItem(product("A", "10"), nil, 1)

	st := s.UpdateQuantity("A", 4)
	require.Len(t, st.Items, 1)
	assert.Equal(t, int64(4), st.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(40).Equal(st.Total))
}

func TestStore_UpdateQuantity_ZeroRemoves(t *testing.T) {
	s := cart.NewStore()
	_, _ = s.AddItem(product("A", "10"), nil, 1)
	_, _ = s.AddItem(product("B", "5"), nil, 1)

	st := s.UpdateQuantity("A", 0)
	require.Len(t, st.Items, 1)
	assert.Equal(t, "B", st.Items[0].Key)

	st = s.UpdateQuantity("B", -3)
	assert.True(t, st.IsEmpty())
	assert.True(t, st.Total.IsZero())
}

func TestStore_MissingKeyIsNoop(t *testing.T) {
	s := cart.NewStore()
	_, _ = s.AddItem(product("A", "10"), nil, 2)
	before := s.State()
	v := before.Version

	assert.Equal(t, before, s.UpdateQuantity("nope", 3))
	assert.Equal(t, before, s.RemoveItem("nope"))
	assert.Equal(t, v, s.State().Version)
}

func TestStore_Clear(t *testing.T) {
	s := cart.NewStore()
	_, _ = s.AddItem(product("A", "10"), nil, 2)
	_, _ = s.AddItem(product("B", "1"), nil, 1)

	st := s.Clear()
	assert.True(t, st.IsEmpty())
	assert.True(t, st.Total.IsZero())
	assert.Equal(t, int64(0), s.TotalItemCount())
}

func TestStore_TotalItemCount(t *testing.T) {
	s := cart.NewStore()
	_, _ = s.AddItem(product("A", "10"), nil, 2)
	_, _ = s.AddItem(product("B", "1"), variant("X", ""), 3)

	assert.Equal(t, int64(5), s.TotalItemCount())
	assert.Equal(t, int64(5), s.State().ItemCount())
}

// =====================
// 不変条件（ランダム操作）
// =====================

func TestStore_InvariantsHoldUnderRandomOperations(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	s := cart.NewStore()

	prices := []string{"", "0.99", "10", "12.50"}
	for i := 0; i < 2000; i++ {
		pid := "P" + strconv.Itoa(r.Intn(5))
		key := pid
		var v *model.VariantRef
		if r.Intn(2) == 0 {
			vid := "V" + strconv.Itoa(r.Intn(3))
			v = variant(vid, prices[r.Intn(len(prices))])
			key = cart.ItemKey(pid, vid)
		}

		var st model.CartState
		switch r.Intn(5) {
		case 0, 1:
			st, _ = s.AddItem(product(pid, prices[r.Intn(len(prices))]), v, int64(r.Intn(4)))
		case 2:
			st = s.UpdateQuantity(key, int64(r.Intn(6)-1))
		case 3:
			st = s.RemoveItem(key)
		default:
			if r.Intn(20) == 0 {
				st = s.Clear()
			} else {
				st = s.State()
			}
		}
		assertInvariants(t, st)
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	s := cart.NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.AddItem(product("A", "2"), nil, 1)
		}()
	}
	wg.Wait()

	st := s.State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, int64(50), st.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(100).Equal(st.Total))
}

// =====================
// State / Subscribe / Restore
// =====================

func TestStore_StateIsCopy(t *testing.T) {
	s := cart.NewStore()
	_, _ = s.AddItem(product("A", "10"), variant("V", "3"), 1)

	st := s.State()
	st.Items[0].Quantity = 99
	st.Items[0].Variant.Title = "changed"

	again := s.State()
	assert.Equal(t, int64(1), again.Items[0].Quantity)
	assert.Equal(t, "Variant V", again.Items[0].Variant.Title)
}

func TestStore_SubscribeReceivesChanges(t *testing.T) {
	s := cart.NewStore()

	var got []int64
	unsubscribe := s.Subscribe(func(st model.CartState) {
		got = append(got, st.ItemCount())
	})

	_, _ = s.AddItem(product("A", "10"), nil, 2)
	s.UpdateQuantity("missing", 1)
	s.UpdateQuantity("A", 5)
	unsubscribe()
	s.Clear()

	assert.Equal(t, []int64{2, 5}, got)
}

func TestRestore_RecomputesAndMerges(t *testing.T) {
	saved := model.CartState{
		Items: []model.CartItem{
			{Key: "stale", Product: product("A", "10"), Quantity: 1},
			{Product: product("A", "10"), Quantity: 2},
			{Product: product("B", "5"), Variant: variant("V", ""), Quantity: 0},
			{Product: model.ProductRef{}, Quantity: 3},
		},
		Total: decimal.NewFromInt(999),
	}

	st := cart.Restore(saved).State()
	require.Len(t, st.Items, 1)
	assert.Equal(t, "A", st.Items[0].Key)
	assert.Equal(t, int64(3), st.Items[0].Quantity)
	assert.True(t, decimal.NewFromInt(30).Equal(st.Total))
}

func TestRestore_KeepsVersion(t *testing.T) {
	saved := model.CartState{
		Items:   []model.CartItem{{Product: product("A", "1"), Quantity: 1}},
		Version: 7,
	}

	s := cart.Restore(saved)
	assert.Equal(t, uint64(7), s.State().Version)

	st, _ := s.AddItem(product("A", "1"), nil, 1)
	assert.Equal(t, uint64(8), st.Version)
}

// =====================
// ItemKey
// =====================

func TestItemKey(t *testing.T) {
	assert.Equal(t, "P", cart.ItemKey("P", ""))
	assert.Equal(t, "P:V", cart.ItemKey("P", "V"))

	// 区切り文字を含むIDでも衝突しない
	assert.NotEqual(t, cart.ItemKey("a::b", ""), cart.ItemKey("a", "b"))
	assert.NotEqual(t, cart.ItemKey("a:b", ""), cart.ItemKey("a", "b"))
	assert.NotEqual(t, cart.ItemKey("a:b", "c"), cart.ItemKey("a", "b:c"))
}

func TestStore_VersionIncrementsOnMutation(t *testing.T) {
	s := cart.NewStore()

	st1, _ := s.AddItem(product("A", "1"), nil, 1)
	st2 := s.UpdateQuantity("A", 2)
	st3 := s.Clear()

	assert.Equal(t, []uint64{1, 2, 3}, []uint64{st1.Version, st2.Version, st3.Version})
}
