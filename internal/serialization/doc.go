// Package serialization reads and writes state dicts as JSON state files.
//
// A state file is a single JSON document:
//
//	{
//	  "format": "stochnorm.state",
//	  "version": 1,
//	  "created_at": "2025-01-02T15:04:05Z",
//	  "tensors": {
//	    "1.running_mean": {"dtype": "float32", "shape": [4], "data": [0, 0, 0, 0]}
//	  },
//	  "metadata": {"model": "mlp"},
//	  "checksum": "<hex SHA-256 of the canonical tensor payload>"
//	}
//
// The checksum covers tensor names, dtypes, shapes and values in sorted name
// order, so reordering keys or reformatting the JSON does not change it.
//
// Example usage:
//
//	if err := serialization.WriteFile("model.json", model.StateDict(), nil); err != nil {
//	    log.Fatal(err)
//	}
//
//	state, err := serialization.ReadFile("model.json", tensor.CPU)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = model.LoadStateDict(state.Tensors)
package serialization
