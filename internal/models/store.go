package models

import (
	"fmt"
	"sort"
)

// Field names a store model can require when an order is added.
const (
	FieldShopID      = "shopId"
	FieldOrderNumber = "orderNumber"
	FieldHTNumber    = "htNumber"
)

// StoreModel describes how an order is added for one retailer and which
// status provider answers for it.
type StoreModel struct {
	ID                string
	Name              string
	ProviderID        string
	RequiredFields    []string
	NeedsStoreLocator bool
}

// Validate checks that every required field of in is set.
func (m StoreModel) Validate(in OrderCreateInput) error {
	values := map[string]string{
		FieldShopID:      in.ShopID,
		FieldOrderNumber: in.OrderNumber,
		FieldHTNumber:    in.HTNumber,
	}
	for _, f := range m.RequiredFields {
		if values[f] == "" {
			return fmt.Errorf("%s is required for store %s", f, m.ID)
		}
	}
	return nil
}

func DefaultStoreModels() []StoreModel {
	return []StoreModel{
		{
			ID:             "dm",
			Name:           "dm",
			ProviderID:     "dm",
			RequiredFields: []string{FieldShopID, FieldOrderNumber},
		},
		{
			ID:             "mueller",
			Name:           "Müller",
			ProviderID:     "mueller",
			RequiredFields: []string{FieldShopID, FieldOrderNumber},
		},
		{
			ID:                "rossmann",
			Name:              "Rossmann",
			ProviderID:        "rossmann",
			RequiredFields:    []string{FieldShopID, FieldOrderNumber, FieldHTNumber},
			NeedsStoreLocator: true,
		},
	}
}

// StoreCatalog is a read-only lookup of store models by id.
type StoreCatalog struct {
	byID map[string]StoreModel
}

func NewStoreCatalog(models []StoreModel) *StoreCatalog {
	c := &StoreCatalog{byID: make(map[string]StoreModel, len(models))}
	for _, m := range models {
		c.byID[m.ID] = m
	}
	return c
}

func (c *StoreCatalog) Get(id string) (StoreModel, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// All returns the models sorted by id.
func (c *StoreCatalog) All() []StoreModel {
	out := make([]StoreModel, 0, len(c.byID))
	for _, m := range c.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
