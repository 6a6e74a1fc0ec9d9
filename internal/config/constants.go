package config

const (
	// Configuration file paths
	ConfigPathSpeciesData = "configs/species.json"

	// DefaultDeadLetterPath is where unpublishable bus events are dumped
	DefaultDeadLetterPath = "logs/deadletter.jsonl"
)
