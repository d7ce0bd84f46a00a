package models

// ObservationMessage is the queue payload for a batch of observations.
// Dataset and series name the target; the subject already carries the
// dataset but the message stays self-contained.
type ObservationMessage struct {
	Dataset      string             `json:"dataset"`
	Series       string             `json:"series"`
	Observations []ObservationEntry `json:"observations"`
}

// ObservationEntry is one observation on the wire
type ObservationEntry struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}
