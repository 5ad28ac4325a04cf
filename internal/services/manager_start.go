package services

import "context"

// Start runs the HTTP server in the background until ctx is canceled. A
// listen or serve failure is delivered on Errors.
func (m *Manager) Start(ctx context.Context) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := m.server.Start(ctx); err != nil {
			m.logger.Error("HTTP server failed", "error", err)
			m.errOnce.Do(func() { m.errCh <- err })
		}
	}()
}
