package lib

import (
	"encoding/json"
	"os"

	"github.com/warelink/wpmsync/models"
	"github.com/warelink/wpmsync/util"
)

const historyFile = "wpmsync_history.json"

// AppendToHistory appends one run's execution record to the history file.
func AppendToHistory(metric models.RunMetric) error {
	var metrics []models.RunMetric

	if raw, err := os.ReadFile(historyFile); err == nil {
		// a corrupt history file starts over
		if err := json.Unmarshal(raw, &metrics); err != nil {
			metrics = nil
		}
	}

	metrics = append(metrics, metric)
	return util.WriteJSON(historyFile, metrics)
}
