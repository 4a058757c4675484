// Package memory provides in-process repository implementations used in
// development mode and by service and handler tests.
package memory

import (
	"context"
	"sync"

	"coursedrive/internal/domain"
	"coursedrive/internal/domain/models/drive"
	"coursedrive/internal/domain/models/quiz"
	"coursedrive/internal/domain/repositories"

	"github.com/google/uuid"
)

// Store holds every collection behind one lock so that multi-collection
// operations observe a consistent state
type Store struct {
	mu      sync.RWMutex
	nodes   map[string]*drive.Node
	quizzes map[string]*quiz.Quiz // keyed by content id
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nodes:   make(map[string]*drive.Node),
		quizzes: make(map[string]*quiz.Quiz),
	}
}

// TransactionManager runs fn directly. Every repository call is atomic on its
// own; there is no rollback of earlier calls when fn fails.
type TransactionManager struct{}

// NewTransactionManager creates a transaction manager for the memory store
func NewTransactionManager() repositories.TransactionManager {
	return &TransactionManager{}
}

// ExecTx executes fn with the given context
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	return fn(ctx)
}

func newID() string {
	return uuid.NewString()
}

func checkID(field, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.InvalidIDError(field, id)
	}
	return nil
}

func cloneNode(n *drive.Node) *drive.Node {
	c := *n
	if n.ParentID != nil {
		p := *n.ParentID
		c.ParentID = &p
	}
	if n.Description != nil {
		d := *n.Description
		c.Description = &d
	}
	if n.Tags != nil {
		c.Tags = append([]string(nil), n.Tags...)
	}
	if n.Data != nil {
		c.Data = append([]byte(nil), n.Data...)
	}
	return &c
}

func cloneQuiz(q *quiz.Quiz) *quiz.Quiz {
	c := *q
	c.Questions = make([]quiz.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		c.Questions[i] = question
	}
	return &c
}
