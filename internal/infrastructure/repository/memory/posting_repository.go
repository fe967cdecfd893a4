package memory

import (
	"context"
	"sync"

	"github.com/dynastyops/capledger/internal/domain/ledger"
)

type PostingRepository struct {
	mu       sync.RWMutex
	postings []ledger.Posting
}

func NewPostingRepository() *PostingRepository {
	return &PostingRepository{}
}

func (r *PostingRepository) SavePostings(_ context.Context, postings []ledger.Posting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.postings = append(r.postings, postings...)

	return nil
}

func (r *PostingRepository) ListPostings(_ context.Context) ([]ledger.Posting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]ledger.Posting(nil), r.postings...), nil
}
