// FILE: internal/service/navigator_service.go
package service

import (
	"context"
	"strings"

	"ai-learnpath-be/internal/repository/unitofwork"
	"ai-learnpath-be/pkg/agent"
	"ai-learnpath-be/pkg/agent/state"
	"ai-learnpath-be/pkg/embedding"
)

// vectorNavigator resolves navigation targets against the session's
// documents. Exact and substring matches over the in-state pools win;
// otherwise the target is embedded and matched by cosine distance against
// the stored topic vectors.
type vectorNavigator struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	lexical           agent.LexicalNavigator
}

func NewVectorNavigator(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) agent.Navigator {
	return &vectorNavigator{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
	}
}

func (n *vectorNavigator) Resolve(ctx context.Context, st *state.AgentState) (*state.DocumentRef, error) {
	ref, err := n.lexical.Resolve(ctx, st)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	target := ""
	if st.Decision != nil {
		target = st.Decision.Target
	}
	if target == "" && st.Intent != nil {
		target = st.Intent.Target
	}
	if strings.TrimSpace(target) == "" {
		return nil, nil
	}

	res, err := n.embeddingProvider.Generate(target, "RETRIEVAL_QUERY")
	if err != nil {
		// Embedding backend down is a navigation miss, not a turn failure.
		return nil, nil
	}

	uow := n.uowFactory.NewUnitOfWork(ctx)
	docs, err := uow.DocumentRepository().FindNearestByTopic(ctx, st.SessionID, res.Embedding.Values, 1)
	if err != nil || len(docs) == 0 {
		return nil, nil
	}

	return &state.DocumentRef{
		ID:    docs[0].Id,
		Topic: docs[0].Topic,
	}, nil
}
