package transcript

import "time"

// TimestampLayout is the local ISO-8601 form used in structured transcripts.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Turn is one recognized utterance.
type Turn struct {
	Timestamp time.Time
	Text      string
}

// Conversation is the ordered set of turns collected since the last clear.
// It is not safe for concurrent use; the session owner goroutine holds it.
type Conversation struct {
	turns []Turn
}

// Append records one turn.
func (c *Conversation) Append(turn Turn) {
	c.turns = append(c.turns, turn)
}

// Turns returns a copy of the recorded turns.
func (c *Conversation) Turns() []Turn {
	return append([]Turn(nil), c.turns...)
}

// Len returns the number of recorded turns.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Empty reports whether no turns were recorded.
func (c *Conversation) Empty() bool {
	return len(c.turns) == 0
}

// Clear drops all turns.
func (c *Conversation) Clear() {
	c.turns = nil
}
