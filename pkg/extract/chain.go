package extract

import "github.com/OFFIS-RIT/castnet/pkg/ai"

// NewDefaultChain builds the standard escalation: remote LLM, local LLM,
// then NLP tagging with the regex heuristic as its fallback. A nil client
// leaves its strategy out.
func NewDefaultChain(remote ai.CompletionClient, remoteParams LLMParams, local ai.LocalClient, localParams LLMParams) Chain {
	chain := Chain{
		Heuristic: NewNLPStrategy(),
		Fallback:  NewRegexStrategy(),
	}
	if remote != nil {
		chain.LLM = append(chain.LLM, NewRemoteLLMStrategy(remote, remoteParams))
	}
	if local != nil {
		chain.LLM = append(chain.LLM, NewLocalLLMStrategy(local, localParams))
	}
	return chain
}
