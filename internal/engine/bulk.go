// internal/engine/bulk.go
package engine

import (
	"context"
	"sync"

	"gym-notification-engine/internal/models"
)

// BulkContent is the shared body of one bulk campaign.
type BulkContent struct {
	Title    string            `json:"title"`
	Message  string            `json:"message"`
	Category models.Category   `json:"category"`
	Priority models.Priority   `json:"priority"`
	Data     map[string]string `json:"data,omitempty"`
}

// BulkResult tallies one bulk send per recipient. A recipient counts as
// successful when at least one of their devices accepted the push.
type BulkResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Total      int `json:"total"`
}

// SendBulk sends the same content to every recipient, at most
// bulkConcurrency recipients in flight at once. A failing recipient never
// stops the rest; the tally always accounts for every recipient.
func (e *Engine) SendBulk(ctx context.Context, recipientIDs []string, content BulkContent) BulkResult {
	result := BulkResult{Total: len(recipientIDs)}
	if len(recipientIDs) == 0 {
		return result
	}

	sem := make(chan struct{}, e.bulkConcurrency)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, recipientID := range recipientIDs {
		wg.Add(1)
		sem <- struct{}{}
		go func(recipientID string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, res, err := e.SendDirect(ctx, recipientID,
				content.Title, content.Message, content.Category, content.Priority, content.Data)

			mu.Lock()
			if err == nil && res.Succeeded > 0 {
				result.Successful++
			} else {
				result.Failed++
			}
			mu.Unlock()

			if err != nil {
				e.logger.Warn("bulk send to recipient failed", map[string]interface{}{
					"recipient_id": recipientID,
					"error":        err.Error(),
				})
			}
		}(recipientID)
	}
	wg.Wait()

	e.logger.Info("bulk send finished", map[string]interface{}{
		"total":      result.Total,
		"successful": result.Successful,
		"failed":     result.Failed,
	})
	return result
}
