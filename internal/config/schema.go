package config

// Schema is the JSON Schema the optional JSON config file overlay is
// validated against before being decoded into Config.
const Schema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "host": {"type": "string"},
    "port": {"type": "integer", "minimum": 1, "maximum": 65535},
    "timeout": {"type": "integer", "minimum": 1},
    "debug": {"type": "boolean"},
    "sink_jsonl_path": {"type": "string"},
    "sink_nats": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "address": {"type": "string"},
        "subject": {"type": "string"},
        "username": {"type": "string"},
        "password": {"type": "string"},
        "creds-file-path": {"type": "string"}
      }
    },
    "sink_avro": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "enabled": {"type": "boolean"},
        "dir": {"type": "string"},
        "rotate-interval": {"type": "string"}
      }
    },
    "metrics_addr": {"type": "string"},
    "maintenance_flush_interval": {"type": "string"},
    "maintenance_stats_interval": {"type": "string"}
  }
}`
