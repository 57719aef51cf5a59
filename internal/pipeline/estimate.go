package pipeline

import (
	"github.com/ziadkadry99/sitesmith/internal/document"
	"github.com/ziadkadry99/sitesmith/internal/llm"
)

// Rough reply sizes used when no call has been made yet.
const (
	draftBaseTokens     = 2500
	draftSectionTokens  = 450
	draftImageTokens    = 60
	refineReplyTokens   = 120
	refineRequestTokens = 80
)

// Estimate is a dry-run cost projection for one request.
type Estimate struct {
	TextModel    string             `json:"textModel"`
	ImageModel   string             `json:"imageModel"`
	TextCalls    int                `json:"textCalls"`
	ImageCalls   int                `json:"imageCalls"`
	InputTokens  int                `json:"inputTokens"`
	OutputTokens int                `json:"outputTokens"`
	Breakdown    map[string]float64 `json:"breakdown"`
	Total        float64            `json:"total"`
}

// EstimateRequest projects the calls, tokens and cost of generating req
// without contacting any model. The request should already be normalized.
func EstimateRequest(req document.GenerationRequest, textModel, imageModel string) Estimate {
	sections := len(req.Sections)
	if sections == 0 {
		sections = 5
	}

	structIn := llm.EstimateTokens(structureSystemPrompt) + llm.EstimateTokens(buildStructurePrompt(req))
	structOut := draftBaseTokens + sections*draftSectionTokens + req.ImageCount*draftImageTokens

	// One refinement per image plus one for the favicon.
	refines := req.ImageCount + 1
	refineIn := refines * (llm.EstimateTokens(refineSystemPrompt) + refineRequestTokens)
	refineOut := refines * refineReplyTokens

	e := Estimate{
		TextModel:    textModel,
		ImageModel:   imageModel,
		TextCalls:    1 + refines,
		ImageCalls:   refines,
		InputTokens:  structIn + refineIn,
		OutputTokens: structOut + refineOut,
		Breakdown: map[string]float64{
			"structure": llm.EstimateCost(textModel, structIn, structOut),
			"refine":    llm.EstimateCost(textModel, refineIn, refineOut),
			"images":    llm.EstimateImageCost(imageModel, refines),
		},
	}
	for _, c := range e.Breakdown {
		e.Total += c
	}
	return e
}
