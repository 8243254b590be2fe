package moodle

import (
	"context"
	"strconv"
)

// GetCategories lists every course category visible to the token.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	payload, err := c.call(ctx, FnGetCategories, Params{})
	if err != nil {
		return nil, err
	}
	return decodeList[Category](payload, categoryListWrapKey)
}

// GetCategoryByID looks a category up by id. Returns nil when unknown.
func (c *Client) GetCategoryByID(ctx context.Context, categoryID int64) (*Category, error) {
	payload, err := c.call(ctx, FnGetCategories, Params{
		"criteria":         []Params{{"key": "id", "value": strconv.FormatInt(categoryID, 10)}},
		"addsubcategories": 0,
	})
	if err != nil {
		return nil, err
	}
	categories, err := decodeList[Category](payload, categoryListWrapKey)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}
	return &categories[0], nil
}
