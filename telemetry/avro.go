package telemetry

import (
	"github.com/linkedin/goavro/v2"
)

var AvroSchema string = `
{
	"type": "record",
	"name": "TelemetryEvent",
	"namespace": "com.acme.telemetry",
	"fields": [
		{ "name": "event_id", "type": "string" },
		{ "name": "customer_id", "type": "string" },
		{ "name": "title_id", "type": "string" },
		{ "name": "session_id", "type": "string" },
		{ "name": "event_type", "type": "string" },
		{ "name": "event_timestamp", "type": "string" },
		{ "name": "watch_duration_seconds", "type": "long" },
		{ "name": "position_seconds", "type": "long" },
		{ "name": "completion_percentage", "type": "double" },
		{ "name": "device_type", "type": "string" },
		{ "name": "device_id", "type": "string" },
		{ "name": "device_os", "type": "string" },
		{ "name": "app_version", "type": "string" },
		{ "name": "quality", "type": "string" },
		{ "name": "bandwidth_mbps", "type": "double" },
		{ "name": "buffering_events", "type": "long" },
		{ "name": "buffering_duration_seconds", "type": "long" },
		{ "name": "error_count", "type": "long" },
		{ "name": "ip_address", "type": "string" },
		{ "name": "country", "type": "string" },
		{ "name": "state", "type": "string" },
		{ "name": "city", "type": "string" },
		{ "name": "isp", "type": "string" },
		{ "name": "connection_type", "type": "string" }
	]
}
`

var AvroCodec *goavro.Codec = nil

func init() {
	var err error
	AvroCodec, err = goavro.NewCodec(AvroSchema)
	if err != nil {
		panic(err)
	}
}
