package services

import "context"

// Shutdown drains the server, then closes the publisher and the store.
func (m *Manager) Shutdown(ctx context.Context) {
	if m.server != nil {
		if err := m.server.Stop(ctx); err != nil {
			m.logger.Error("Error stopping HTTP server", "error", err)
		}
	}

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("Timeout waiting for server to stop")
	}

	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			m.logger.Error("Error closing event publisher", "error", err)
		}
	}
	if m.store != nil {
		if err := m.store.Close(ctx); err != nil {
			m.logger.Error("Error closing store", "error", err)
		}
	}
	m.logger.Info("Shutdown complete")
}
