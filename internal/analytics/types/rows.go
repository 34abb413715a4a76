package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// FunnelEventRow mirrors the funnel_events BigQuery schema. One row per
// checkout funnel event or transaction status transition.
type FunnelEventRow struct {
	EventID        string             `bigquery:"event_id"`
	EventType      string             `bigquery:"event_type"`
	OccurredAt     time.Time          `bigquery:"occurred_at"`
	TransactionID  string             `bigquery:"transaction_id"`
	PixID          *string            `bigquery:"pix_id"`
	SessionID      *string            `bigquery:"session_id"`
	Status         *string            `bigquery:"status"`
	Channel        *string            `bigquery:"channel"`
	ValueCents     *int64             `bigquery:"value_cents"`
	Currency       *string            `bigquery:"currency"`
	UpsellAdded    *bool              `bigquery:"upsell_added"`
	UpsellID       *string            `bigquery:"upsell_id"`
	PixelForwarded bool               `bigquery:"pixel_forwarded"`
	Payload        cbigquery.NullJSON `bigquery:"payload"`
}

// FunnelEventSchema is used to create funnel_events when it is missing.
// The table is partitioned by day on occurred_at.
var FunnelEventSchema = cbigquery.Schema{
	{Name: "event_id", Type: cbigquery.StringFieldType, Required: true},
	{Name: "event_type", Type: cbigquery.StringFieldType, Required: true},
	{Name: "occurred_at", Type: cbigquery.TimestampFieldType, Required: true},
	{Name: "transaction_id", Type: cbigquery.StringFieldType, Required: true},
	{Name: "pix_id", Type: cbigquery.StringFieldType},
	{Name: "session_id", Type: cbigquery.StringFieldType},
	{Name: "status", Type: cbigquery.StringFieldType},
	{Name: "channel", Type: cbigquery.StringFieldType},
	{Name: "value_cents", Type: cbigquery.IntegerFieldType},
	{Name: "currency", Type: cbigquery.StringFieldType},
	{Name: "upsell_added", Type: cbigquery.BooleanFieldType},
	{Name: "upsell_id", Type: cbigquery.StringFieldType},
	{Name: "pixel_forwarded", Type: cbigquery.BooleanFieldType, Required: true},
	{Name: "payload", Type: cbigquery.JSONFieldType},
}
