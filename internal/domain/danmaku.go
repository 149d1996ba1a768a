package domain

import "strings"

// Delimiter separates sender from text in a notification body ("Alice：hello").
// It is the full-width colon U+FF1A, not the ASCII one.
const Delimiter = "："

// Danmaku is a single overlay chat line.
// Color and Size are reserved for styling and are never set by the bridge.
type Danmaku struct {
	Text   string   `json:"text"`
	Color  *string  `json:"color,omitempty"`
	Size   *float64 `json:"size,omitempty"`
	Sender *string  `json:"sender,omitempty"`
}

// DanmakuPacket is the unit placed on the queue and written to the wire.
// Group carries the notification summary verbatim.
type DanmakuPacket struct {
	Group   string  `json:"group"`
	Danmaku Danmaku `json:"danmaku"`
}

// NewPacket builds an unstyled packet attributed to sender.
func NewPacket(group, sender, text string) DanmakuPacket {
	return DanmakuPacket{
		Group: group,
		Danmaku: Danmaku{
			Text:   text,
			Sender: &sender,
		},
	}
}

// SenderName returns the sender or "" when the packet is anonymous.
func (p DanmakuPacket) SenderName() string {
	if p.Danmaku.Sender == nil {
		return ""
	}
	return *p.Danmaku.Sender
}

// SplitBody splits body on the first Delimiter.
// ok is false when the body does not follow the "sender：text" convention.
func SplitBody(body string) (sender, text string, ok bool) {
	return strings.Cut(body, Delimiter)
}
