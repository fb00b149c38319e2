// Package api defines the chitfund RPC surface: message types, procedure names,
// Connect handlers and clients. Messages are plain Go structs carried as JSON.
package api

import "encoding/json"

// CodecName is registered under the same name as Connect's built-in JSON
// codec, so clients and curl users send "application/json".
const CodecName = "json"

// Codec marshals messages with encoding/json.
type Codec struct{}

// Name implements connect.Codec.
func (Codec) Name() string { return CodecName }

// Marshal implements connect.Codec.
func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Unmarshal implements connect.Codec. An empty body decodes to the zero message.
func (Codec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, msg)
}
