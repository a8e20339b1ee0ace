package telemetry

import (
	"encoding/json"
	"fmt"
	"videogen/gen"
	"videogen/sink"

	protobuf "google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const Topic = "acme-telemetry"

// Row is the columnar form of an Event.
type Row struct {
	EventID                  string  `parquet:"event_id" json:"event_id"`
	CustomerID               string  `parquet:"customer_id" json:"customer_id"`
	TitleID                  string  `parquet:"title_id" json:"title_id"`
	SessionID                string  `parquet:"session_id" json:"session_id"`
	EventType                string  `parquet:"event_type" json:"event_type"`
	EventTimestamp           string  `parquet:"event_timestamp" json:"event_timestamp"`
	WatchDurationSeconds     int64   `parquet:"watch_duration_seconds" json:"watch_duration_seconds"`
	PositionSeconds          int64   `parquet:"position_seconds" json:"position_seconds"`
	CompletionPercentage     float64 `parquet:"completion_percentage" json:"completion_percentage"`
	DeviceType               string  `parquet:"device_type" json:"device_type"`
	DeviceID                 string  `parquet:"device_id" json:"device_id"`
	DeviceOS                 string  `parquet:"device_os" json:"device_os"`
	AppVersion               string  `parquet:"app_version" json:"app_version"`
	Quality                  string  `parquet:"quality" json:"quality"`
	BandwidthMbps            float64 `parquet:"bandwidth_mbps" json:"bandwidth_mbps"`
	BufferingEvents          int64   `parquet:"buffering_events" json:"buffering_events"`
	BufferingDurationSeconds int64   `parquet:"buffering_duration_seconds" json:"buffering_duration_seconds"`
	ErrorCount               int64   `parquet:"error_count" json:"error_count"`
	IPAddress                string  `parquet:"ip_address" json:"ip_address"`
	Country                  string  `parquet:"country" json:"country"`
	State                    string  `parquet:"state" json:"state"`
	City                     string  `parquet:"city" json:"city"`
	ISP                      string  `parquet:"isp" json:"isp"`
	ConnectionType           string  `parquet:"connection_type" json:"connection_type"`
}

func (e *Event) Row() Row {
	return Row{
		EventID:                  e.EventID,
		CustomerID:               e.CustomerID,
		TitleID:                  e.TitleID,
		SessionID:                e.SessionID,
		EventType:                e.EventType,
		EventTimestamp:           e.Timestamp.UTC().Format(gen.DateTimeLayout),
		WatchDurationSeconds:     int64(e.WatchDurationSeconds),
		PositionSeconds:          int64(e.PositionSeconds),
		CompletionPercentage:     e.CompletionPercentage,
		DeviceType:               e.DeviceType,
		DeviceID:                 e.DeviceID,
		DeviceOS:                 e.DeviceOS,
		AppVersion:               e.AppVersion,
		Quality:                  e.Quality,
		BandwidthMbps:            e.BandwidthMbps,
		BufferingEvents:          int64(e.BufferingEvents),
		BufferingDurationSeconds: int64(e.BufferingDurationSeconds),
		ErrorCount:               int64(e.ErrorCount),
		IPAddress:                e.IPAddress,
		Country:                  e.Country,
		State:                    e.State,
		City:                     e.City,
		ISP:                      e.ISP,
		ConnectionType:           e.ConnectionType,
	}
}

func Rows(events []Event) []Row {
	rows := make([]Row, len(events))
	for i := range events {
		rows[i] = events[i].Row()
	}
	return rows
}

// native is the field map shared by the Protobuf and Avro encodings.
func (r *Row) native() map[string]interface{} {
	return map[string]interface{}{
		"event_id":                   r.EventID,
		"customer_id":                r.CustomerID,
		"title_id":                   r.TitleID,
		"session_id":                 r.SessionID,
		"event_type":                 r.EventType,
		"event_timestamp":            r.EventTimestamp,
		"watch_duration_seconds":     r.WatchDurationSeconds,
		"position_seconds":           r.PositionSeconds,
		"completion_percentage":      r.CompletionPercentage,
		"device_type":                r.DeviceType,
		"device_id":                  r.DeviceID,
		"device_os":                  r.DeviceOS,
		"app_version":                r.AppVersion,
		"quality":                    r.Quality,
		"bandwidth_mbps":             r.BandwidthMbps,
		"buffering_events":           r.BufferingEvents,
		"buffering_duration_seconds": r.BufferingDurationSeconds,
		"error_count":                r.ErrorCount,
		"ip_address":                 r.IPAddress,
		"country":                    r.Country,
		"state":                      r.State,
		"city":                       r.City,
		"isp":                        r.ISP,
		"connection_type":            r.ConnectionType,
	}
}

func (e *Event) ToPostgresSql() string {
	r := e.Row()
	return fmt.Sprintf(`INSERT INTO %s
(event_id, customer_id, title_id, session_id, event_type, event_timestamp, watch_duration_seconds, position_seconds, completion_percentage, device_type, device_id, device_os, app_version, quality, bandwidth_mbps, buffering_events, buffering_duration_seconds, error_count, ip_address, country, state, city, isp, connection_type)
values (%s, %s, %s, %s, %s, %s, %d, %d, %.2f, %s, %s, %s, %s, %s, %.2f, %d, %d, %d, %s, %s, %s, %s, %s, %s)`,
		"telemetry_events",
		sink.Quote(r.EventID), sink.Quote(r.CustomerID), sink.Quote(r.TitleID), sink.Quote(r.SessionID),
		sink.Quote(r.EventType), sink.Quote(r.EventTimestamp), r.WatchDurationSeconds, r.PositionSeconds,
		r.CompletionPercentage, sink.Quote(r.DeviceType), sink.Quote(r.DeviceID), sink.Quote(r.DeviceOS),
		sink.Quote(r.AppVersion), sink.Quote(r.Quality), r.BandwidthMbps, r.BufferingEvents,
		r.BufferingDurationSeconds, r.ErrorCount, sink.Quote(r.IPAddress), sink.Quote(r.Country),
		sink.Quote(r.State), sink.Quote(r.City), sink.Quote(r.ISP), sink.Quote(r.ConnectionType))
}

func (e *Event) ToJson() (topic string, key string, data []byte) {
	data, _ = json.Marshal(e.Row())
	return Topic, e.CustomerID, data
}

func (e *Event) ToProtobuf() (topic string, key string, data []byte) {
	r := e.Row()
	m, err := structpb.NewStruct(r.native())
	if err != nil {
		panic(err)
	}
	data, err = protobuf.Marshal(m)
	if err != nil {
		panic(err)
	}
	return Topic, e.CustomerID, data
}

func (e *Event) ToAvro() (topic string, key string, data []byte) {
	r := e.Row()
	binary, err := AvroCodec.BinaryFromNative(nil, r.native())
	if err != nil {
		panic(err)
	}
	return Topic, e.CustomerID, binary
}
