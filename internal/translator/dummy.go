package translator

import (
	"context"

	"github.com/UkralStul/localized-view-service/internal/domain"
	"go.uber.org/zap"
)

// Dummy возвращает исходный текст. Используется в тестах и когда
// настоящий провайдер не настроен.
type Dummy struct {
	log *zap.Logger
}

func NewDummy(log *zap.Logger) *Dummy {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dummy{log: log}
}

func (d *Dummy) Name() string    { return "dummy" }
func (d *Dummy) Available() bool { return true }

// Translate ничего не переводит: результат помечен как неуспешный.
func (d *Dummy) Translate(ctx context.Context, req Request) (Result, error) {
	d.log.Debug("dummy provider: would translate",
		zap.String("source", req.SourceLang),
		zap.String("target", req.TargetLang))
	res := failed(d.Name(), req, ErrCodeDummy)
	if res.SourceLang == "" {
		res.SourceLang = domain.UnknownLang
	}
	return res, nil
}

func (d *Dummy) DetectLanguage(ctx context.Context, text string) (string, error) {
	return domain.UnknownLang, nil
}
