// Restockd - Grocery Reorder Recommendation Service
// Copyright 2026 Restockd Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/restockd/restockd

// Package rawdata reads the raw store: the flat CSV files holding order
// headers, basket line items, and product metadata.
//
// The readers validate headers up front and fail with an error naming
// every missing column, so a malformed raw store is caught before any
// aggregation runs. They never impute missing rows; an absent file is an
// error for the caller to treat as fatal.
package rawdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/restockd/restockd/internal/models"
)

// header maps column names to field positions for one CSV file.
type header map[string]int

// requireColumns builds a header index and errors if any required column
// is absent, naming all missing columns at once.
func requireColumns(record []string, required []string, file string) (header, error) {
	h := make(header, len(record))
	for i, name := range record {
		h[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := h[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s: missing required columns: %s", file, strings.Join(missing, ", "))
	}
	return h, nil
}

func (h header) field(record []string, col string) string {
	return strings.TrimSpace(record[h[col]])
}

func (h header) int64Field(record []string, col string, file string, line int) (int64, error) {
	v, err := strconv.ParseInt(h.field(record, col), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s line %d: column %s: %w", file, line, col, err)
	}
	return v, nil
}

func (h header) intField(record []string, col string, file string, line int) (int, error) {
	v, err := h.int64Field(record, col, file, line)
	return int(v), err
}

// open opens a raw CSV file and returns its reader plus the first data
// line number. The csv.Reader reuses its record slice; callers must copy
// values before the next Read.
func open(path string) (*os.File, *csv.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("raw store file unavailable: %w", err)
	}
	r := csv.NewReader(f)
	r.ReuseRecord = true
	return f, r, nil
}

// ordersColumns are the required columns of the order header file.
var ordersColumns = []string{
	"order_id", "user_id", "order_number",
	"order_dow", "order_hour_of_day", "days_since_prior_order",
}

// ReadOrders reads the raw order headers.
//
// A blank days_since_prior_order cell marks a user's first order; the
// returned Order has HasDaysSincePrior=false and a zero value.
func ReadOrders(path string) ([]models.Order, error) {
	f, r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	h, err := requireColumns(head, ordersColumns, path)
	if err != nil {
		return nil, err
	}

	var orders []models.Order
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		var o models.Order
		if o.OrderID, err = h.int64Field(record, "order_id", path, line); err != nil {
			return nil, err
		}
		if o.UserID, err = h.int64Field(record, "user_id", path, line); err != nil {
			return nil, err
		}
		if o.OrderNumber, err = h.intField(record, "order_number", path, line); err != nil {
			return nil, err
		}
		if o.OrderDOW, err = h.intField(record, "order_dow", path, line); err != nil {
			return nil, err
		}
		if o.OrderHour, err = h.intField(record, "order_hour_of_day", path, line); err != nil {
			return nil, err
		}

		if raw := h.field(record, "days_since_prior_order"); raw != "" {
			days, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: column days_since_prior_order: %w", path, line, err)
			}
			o.DaysSincePrior = days
			o.HasDaysSincePrior = true
		}

		orders = append(orders, o)
	}
	return orders, nil
}

// basketColumns are the required columns of the basket line-item file.
var basketColumns = []string{
	"order_id", "product_id", "add_to_cart_order", "reordered",
}

// ReadBasketItems reads the raw basket line items.
func ReadBasketItems(path string) ([]models.BasketItem, error) {
	f, r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	h, err := requireColumns(head, basketColumns, path)
	if err != nil {
		return nil, err
	}

	var items []models.BasketItem
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		var it models.BasketItem
		if it.OrderID, err = h.int64Field(record, "order_id", path, line); err != nil {
			return nil, err
		}
		if it.ProductID, err = h.int64Field(record, "product_id", path, line); err != nil {
			return nil, err
		}
		if it.AddToCartOrder, err = h.intField(record, "add_to_cart_order", path, line); err != nil {
			return nil, err
		}
		if it.Reordered, err = h.intField(record, "reordered", path, line); err != nil {
			return nil, err
		}

		items = append(items, it)
	}
	return items, nil
}

// productColumns are the required columns of the product metadata file.
// product_name is optional; it only enriches responses.
var productColumns = []string{
	"product_id", "aisle_id", "department_id",
}

// ReadProducts reads the raw product metadata.
func ReadProducts(path string) ([]models.Product, error) {
	f, r, err := open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read header: %w", path, err)
	}
	h, err := requireColumns(head, productColumns, path)
	if err != nil {
		return nil, err
	}
	_, hasName := h["product_name"]

	var products []models.Product
	for line := 2; ; line++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}

		var p models.Product
		if p.ProductID, err = h.int64Field(record, "product_id", path, line); err != nil {
			return nil, err
		}
		if p.AisleID, err = h.int64Field(record, "aisle_id", path, line); err != nil {
			return nil, err
		}
		if p.DepartmentID, err = h.int64Field(record, "department_id", path, line); err != nil {
			return nil, err
		}
		if hasName {
			p.Name = h.field(record, "product_name")
		}

		products = append(products, p)
	}
	return products, nil
}
