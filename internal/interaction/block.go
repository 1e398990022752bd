package interaction

import (
	"bytes"
	"encoding/json"
)

// InteractiveBlockType tags blocks that hold buttons or other controls.
const InteractiveBlockType = "actions"

// Block is one structured content element of a chat message, kept verbatim.
type Block json.RawMessage

func (b Block) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	return b, nil
}

func (b *Block) UnmarshalJSON(data []byte) error {
	*b = append((*b)[:0], data...)
	return nil
}

// Type returns the block's "type" tag, or "" when it has none.
func (b Block) Type() string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(b, &head); err != nil {
		return ""
	}
	return head.Type
}

// StripInteractive drops interactive blocks and keeps the rest in order.
func StripInteractive(blocks []Block) []Block {
	out := make([]Block, 0, len(blocks))
	for _, b := range blocks {
		if b.Type() == InteractiveBlockType {
			continue
		}
		out = append(out, b)
	}
	return out
}

// StatusBlock builds a read-only context line.
func StatusBlock(text string) Block {
	raw, _ := marshal(map[string]any{
		"type": "context",
		"elements": []map[string]string{
			{"type": "mrkdwn", "text": text},
		},
	})
	return Block(raw)
}

// marshal is json.Marshal without HTML escaping; chat mentions like <@U1>
// must survive byte for byte.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
