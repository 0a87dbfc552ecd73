package adzuna

import (
	"context"
	"fmt"
	"net/url"
	"reflect"
	"strings"
)

const (
	searchPath = "/v1/api/jobs/%s/search/%d"
)

// SearchParams describes one search request.
type SearchParams struct {
	Keywords []string
	// Location defaults to the client location when empty.
	Location string
	PageSize int
	// Page is 1-based; zero means the first page.
	Page int
	// Exclude drops postings mentioning any of these words.
	Exclude []string
}

// query is the wire form of a search request.
type query struct {
	// adzparam is custom tag for reflect. Please see buildParams.
	AppID          string   `adzparam:"app_id"`
	AppKey         string   `adzparam:"app_key"`
	What           string   `adzparam:"what"`
	Where          string   `adzparam:"where"`
	ResultsPerPage int      `adzparam:"results_per_page"`
	ContentType    string   `adzparam:"content-type"`
	Exclude        []string `adzparam:"what_exclude"`
}

func (c *Client) search(ctx context.Context, params SearchParams) ([]Posting, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}

	pageSize := params.PageSize
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	location := strings.TrimSpace(params.Location)
	if location == "" {
		location = c.Location
	}

	q := buildParams(&query{
		AppID:          c.appID,
		AppKey:         c.appKey,
		What:           strings.Join(params.Keywords, " "),
		Where:          location,
		ResultsPerPage: pageSize,
		ContentType:    contentType,
		Exclude:        params.Exclude,
	})
	apiURLSearch := c.APIURL + fmt.Sprintf(searchPath, url.PathEscape(c.Country), page)

	items, err := c.getItems(ctx, apiURLSearch, q)
	if err != nil {
		return nil, err
	}

	return c.normalize(items), nil
}

func buildParams(params *query) url.Values {
	q := url.Values{}
	fields := reflect.VisibleFields(reflect.TypeOf(*params))
	for _, field := range fields {
		key := field.Tag.Get("adzparam")
		if key == "" {
			continue
		}

		value := reflect.ValueOf(params).Elem().Field(field.Index[0])
		switch field.Type.Kind() {
		case reflect.Slice:
			if v, ok := value.Interface().([]string); ok {
				if joined := strings.Join(v, " "); strings.TrimSpace(joined) != "" {
					q.Set(key, joined)
				}
			}

		default:
			s := strings.TrimSpace(fmt.Sprintf("%v", value.Interface()))
			if s != "" && s != "0" {
				q.Set(key, s)
			}
		}
	}

	return q
}
