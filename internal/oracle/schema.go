package oracle

// Schemas the oracle's raw JSON output is validated against before being
// trusted (§7: "any schema or invariant violation falls through to
// deterministic mode"). Kept as plain string constants rather than an
// external schema-file loader since there are only two, both small and
// static.

const normalizationSchema = `{
  "type": "object",
  "required": ["metadata", "confidence"],
  "properties": {
    "metadata": {
      "type": "object",
      "required": ["function_id", "allowed_regions"],
      "properties": {
        "function_id": {"type": "string", "minLength": 1},
        "runtime_ms": {"type": "number", "minimum": 0},
        "memory_mb": {"type": "number", "minimum": 0},
        "vcpus": {"type": "number", "minimum": 0},
        "gpu_required": {"type": "boolean"},
        "allowed_regions": {"type": "array", "items": {"type": "string"}, "minItems": 1},
        "weight_carbon": {"type": "number", "minimum": 0},
        "weight_cost": {"type": "number", "minimum": 0},
        "weight_latency": {"type": "number", "minimum": 0},
        "deadline_hours": {"type": "number", "minimum": 0}
      }
    },
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "assumptions": {"type": "array", "items": {"type": "string"}},
    "warnings": {"type": "array", "items": {"type": "string"}}
  }
}`

const rankSchema = `{
  "type": "object",
  "required": ["order"],
  "properties": {
    "order": {"type": "array", "items": {"type": "integer", "minimum": 0}},
    "rationale": {"type": "array", "items": {"type": "string"}}
  }
}`
