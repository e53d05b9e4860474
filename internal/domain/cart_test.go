package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lamp() *Product {
	return &Product{ID: "p-7", Name: "Lamp", Price: 1000, Stock: 5}
}

func assertTotalInvariant(t *testing.T, c *Cart) {
	t.Helper()
	var sum int64
	for _, it := range c.Items {
		sum += it.UnitPrice * int64(it.Quantity)
	}
	assert.Equal(t, sum, c.TotalAmount)
}

func TestNewCart_Empty(t *testing.T) {
	now := time.Now().UTC()
	c := NewCart("s-1", now)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, "s-1", c.SessionID)
	assert.True(t, c.IsEmpty())
	assert.NotNil(t, c.Items)
	assert.Zero(t, c.TotalAmount)
	assert.Equal(t, now, c.CreatedAt)
}

func TestCart_AddItem_MergesSameProduct(t *testing.T) {
	c := NewCart("s-1", time.Now())
	c.AddItem(lamp(), 3)
	c.AddItem(lamp(), 2)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.Equal(t, c.ID, c.Items[0].CartID)
	assert.Equal(t, int64(5000), c.TotalAmount)
}

func TestCart_AddItem_KeepsCapturedPrice(t *testing.T) {
	c := NewCart("s-1", time.Now())
	p := lamp()
	c.AddItem(p, 1)

	p.Price = 9999
	c.AddItem(p, 1)

	assert.Equal(t, int64(1000), c.Items[0].UnitPrice)
	assert.Equal(t, int64(2000), c.TotalAmount)
}

func TestCart_TotalInvariantAcrossMutations(t *testing.T) {
	c := NewCart("s-1", time.Now())
	mug := &Product{ID: "p-8", Name: "Mug", Price: 450}
	desk := &Product{ID: "p-9", Name: "Desk", Price: 25000}

	steps := []func(){
		func() { c.AddItem(lamp(), 2) },
		func() { c.AddItem(mug, 3) },
		func() { c.AddItem(desk, 1) },
		func() { c.RemoveItem(mug.ID) },
		func() { c.AddItem(lamp(), 1) },
		func() { c.Clear() },
		func() { c.AddItem(mug, 1) },
	}
	for _, step := range steps {
		step()
		assertTotalInvariant(t, c)
	}
	assert.Equal(t, int64(450), c.TotalAmount)
}

func TestCart_RemoveItem(t *testing.T) {
	c := NewCart("s-1", time.Now())
	c.AddItem(lamp(), 2)

	assert.False(t, c.RemoveItem("missing"))
	assert.Len(t, c.Items, 1)

	assert.True(t, c.RemoveItem("p-7"))
	assert.True(t, c.IsEmpty())
	assert.Zero(t, c.TotalAmount)
}

func TestCart_ClearIdempotent(t *testing.T) {
	c := NewCart("s-1", time.Now())
	c.AddItem(lamp(), 2)

	c.Clear()
	first := c.Clone()
	c.Clear()

	assert.Equal(t, first, c)
	assert.Zero(t, c.TotalAmount)
}

func TestCart_QuantityOfAndProductIDs(t *testing.T) {
	c := NewCart("s-1", time.Now())
	c.AddItem(lamp(), 2)
	c.AddItem(&Product{ID: "p-1", Name: "Pen", Price: 100}, 4)

	assert.Equal(t, 2, c.QuantityOf("p-7"))
	assert.Equal(t, 0, c.QuantityOf("nope"))
	assert.Equal(t, []string{"p-7", "p-1"}, c.ProductIDs())
}

func TestCart_CloneIsDeep(t *testing.T) {
	c := NewCart("s-1", time.Now())
	c.AddItem(lamp(), 2)

	cp := c.Clone()
	cp.Items[0].Quantity = 99

	assert.Equal(t, 2, c.Items[0].Quantity)
}
