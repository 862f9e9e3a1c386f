package workflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Engine hosts every order-lifecycle and stock operation. One instance is
// constructed at process start and handed to the HTTP layer; there is no
// ambient global state besides the files themselves.
type Engine struct {
	repo   *Repository
	logger *logrus.Logger
	now    func() time.Time
	newID  func() string
}

func NewEngine(repo *Repository, logger *logrus.Logger) *Engine {
	return &Engine{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

func (e *Engine) Repo() *Repository { return e.repo }
