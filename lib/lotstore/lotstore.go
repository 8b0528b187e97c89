package lotstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"lotscout-backend/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lotstore")

// Lot is a candidate property record, ranked upstream by lead score.
type Lot struct {
	ID      string `json:"id"`
	Address string `json:"property_address"`
	City    string `json:"property_city"`
	Zip     string `json:"property_zip"`
	County  string `json:"county"`
}

type Client struct {
	http *resty.Client
}

type Options struct {
	BaseUrl string
	// supabase service-role key, sent as both `apikey` and bearer token
	ServiceKey string
}

func NewClient(opts Options) *Client {
	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	client.SetHeader("apikey", opts.ServiceKey)
	client.SetHeader("Authorization", fmt.Sprintf("Bearer %s", opts.ServiceKey))
	client.SetTimeout(time.Second * 15)

	telemetry.InstrumentResty(client, "lotstore/http")

	return &Client{http: client}
}

type TopLotsQuery struct {
	MinScore int
	Limit    int
}

// TopLots returns the highest-scored lots, excluding placeholder
// addresses ("0 ..." rows the importer writes when the county record
// has no situs address).
func (c *Client) TopLots(ctx context.Context, query TopLotsQuery) ([]Lot, error) {
	ctx, span := tracer.Start(ctx, "TopLots")
	defer span.End()
	span.SetAttributes(
		attribute.Int("min_score", query.MinScore),
		attribute.Int("limit", query.Limit),
	)

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"select":           "id,property_address,property_city,property_zip,county",
			"property_address": "not.like.0 *",
			"lead_score":       fmt.Sprintf("gte.%d", query.MinScore),
			"order":            "lead_score.desc",
			"limit":            strconv.Itoa(query.Limit),
		}).
		Get("/rest/v1/lots")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query lots")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("lot query returned status %d", res.StatusCode())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var lots []Lot
	err = json.Unmarshal(res.Body(), &lots)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode lot records")
		return nil, err
	}
	return lots, nil
}
