package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"orders/internal/core/domain/model/kernel"
	"orders/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `
products:
  - id: P1
    name: Widget
    price: "10.00"
  - id: P2
    name: Gadget
    price: 2.5
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sampleCatalog))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	widget, err := c.GetProduct(t.Context(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "Widget", widget.Name)
	assert.True(t, widget.Price.IsEqual(kernel.MustMoney("10")))

	gadget, err := c.GetProduct(t.Context(), "P2")
	require.NoError(t, err)
	assert.Equal(t, "2.50", gadget.Price.String())
}

func TestParseRejectsBadDocuments(t *testing.T) {
	tests := map[string]string{
		"not yaml":       "products: [",
		"missing id":     "products:\n  - name: Widget\n    price: \"1.00\"\n",
		"missing name":   "products:\n  - id: P1\n    price: \"1.00\"\n",
		"negative price": "products:\n  - id: P1\n    name: Widget\n    price: \"-1.00\"\n",
		"sub-cent price": "products:\n  - id: P1\n    name: Widget\n    price: \"0.005\"\n",
		"bad price":      "products:\n  - id: P1\n    name: Widget\n    price: cheap\n",
		"duplicate id":   "products:\n  - id: P1\n    name: A\n    price: \"1\"\n  - id: P1\n    name: B\n    price: \"2\"\n",
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.True(t, errs.IsValidation(err))
		})
	}
}

func TestGetProductUnknown(t *testing.T) {
	c := NewStaticCatalog()

	_, err := c.GetProduct(t.Context(), "P404")

	require.ErrorIs(t, err, errs.ErrUnknownProduct)
	var unknown *errs.UnknownProductError
	require.ErrorAs(t, err, &unknown)
}

func TestGetProductCancelledContextIsTransient(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := NewStaticCatalog().GetProduct(ctx, "P1")

	require.ErrorIs(t, err, errs.ErrTransient)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
