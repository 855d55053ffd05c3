package service

import (
	"log/slog"

	"glanceboard.app/embedgate/core/config"
	"glanceboard.app/embedgate/internal/queue"
	"glanceboard.app/embedgate/internal/store"
)

type Services struct {
	eventLogs store.EmbedEventLogStore
	producer  queue.Producer
	tokens    TokenExchanger
	renderer  MarkupRenderer
	cfg       config.Config
}

func NewServices(eventLogs store.EmbedEventLogStore, producer queue.Producer, tokens TokenExchanger, renderer MarkupRenderer, cfg config.Config) *Services {
	return &Services{
		eventLogs: eventLogs,
		producer:  producer,
		tokens:    tokens,
		renderer:  renderer,
		cfg:       cfg,
	}
}

func (s *Services) EventIngest() EventIngestService {
	return NewEventIngestService(s.eventLogs, s.producer, s.cfg.Embed.EmbedType, slog.Default())
}

func (s *Services) EmbedFlow() EmbedFlowService {
	return NewEmbedFlowService(s.tokens, s.renderer, s.cfg.Host, slog.Default())
}
