package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Statement Merger Model Prompts ---
const MergerSystemPrompt = "You are an executive recruiter writing the executive summary of a candidate profile. You merge draft statements into polished, factual prose. You never invent employers, titles, dates, or figures."

const CredibilityUserPrompt = `Merge the statements below into a single credibility statement for the candidate.

Follow these rules:
1.  Keep every concrete fact (employers, titles, years of experience, scope of responsibility).
2.  Remove duplication between the existing statement and the new drafts; when they conflict, prefer the new drafts.
3.  Write in the third person, in two to four sentences, without headings or bullet points.
4.  If a résumé excerpt is provided, you may use it only to correct names and titles.

Return ONLY the merged statement text.`

const ResultsUserPrompt = `Merge the statements below into the candidate's list of results and achievements.

Follow these rules:
1.  Each achievement is one line starting with "- " and leads with the outcome.
2.  Keep all figures exactly as written (revenue, percentages, team sizes, dates).
3.  Combine achievements that describe the same outcome; keep distinct ones separate.
4.  Order achievements from most to least impactful. Do not add achievements that are not in the input.

Return ONLY the merged list.`

// VertexClient holds the pre-configured generative models for our app.
type VertexClient struct {
	MergerModel *genai.GenerativeModel
	baseClient  *genai.Client
}

// NewVertexClient creates a new client holding all necessary models.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	// --- Configure the merger model ---
	mergerModel := baseClient.GenerativeModel(modelName)
	mergerModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(MergerSystemPrompt)},
	}
	mergerModel.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "text/plain",
		Temperature:      genai.Ptr[float32](0.2),
	}

	return &VertexClient{
		MergerModel: mergerModel,
		baseClient:  baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
