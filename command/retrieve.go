package command

import (
	"context"
	"fmt"

	"github.com/nishant-bin/neuranet/engine"
	"github.com/nishant-bin/neuranet/model"
	"github.com/nishant-bin/neuranet/retrieval"
)

// retrieveModule exposes knowledge-base search to flows.
//
// retrieve.search inputs:
//
//	brains      knowledge base ids, falls back to request.brains
//	query       override for the request query
//	topK        final chunk count
//	scoreCutoff minimum chunk score
//	chunkSize   re-chunking size in characters
//	structured  return scored hits instead of joined text
//	allowEmpty  do not signal NOKNOWLEDGE on an empty result
func retrieveModule(deps Deps) engine.Module {
	return engine.Module{
		"search": func(ctx context.Context, call *engine.Call) (any, error) {
			params := call.Params
			identity := paramString(params, "identity")
			org := paramString(params, "org")
			query := paramString(params, "query")

			brains := paramStrings(params, "brains")
			if len(brains) == 0 {
				brains = asStrings(requestField(params, "brains"))
			}
			if len(brains) == 0 {
				return nil, fmt.Errorf("retrieve.search needs at least one brain id")
			}

			opts := retrieval.Options{
				TopK:        paramInt(params, "topK"),
				ScoreCutoff: paramFloat(params, "scoreCutoff"),
				ChunkSize:   paramInt(params, "chunkSize"),
			}

			if paramBool(params, "structured") {
				hits, err := deps.Retrieval.Search(ctx, identity, org, query, brains, opts)
				if err != nil {
					return nil, err
				}
				if len(hits) == 0 && !paramBool(params, "allowEmpty") {
					call.Signal("no relevant knowledge found", model.REASON_NOKNOWLEDGE)
					return nil, nil
				}
				return hits, nil
			}

			joined, err := deps.Retrieval.SearchJoined(ctx, identity, org, query, brains, opts)
			if err != nil {
				return nil, err
			}
			if len(joined) == 0 && !paramBool(params, "allowEmpty") {
				call.Signal("no relevant knowledge found", model.REASON_NOKNOWLEDGE)
				return nil, nil
			}
			return joined, nil
		},
	}
}
