package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/resumeintake/internal/gcp"
	"github.com/Lllllllleong/resumeintake/internal/models"
)

// maxResumeExcerpt caps how much résumé text is sent along with the drafts.
const maxResumeExcerpt = 8000

// contentGenerator is satisfied by *genai.GenerativeModel.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// SummaryStore persists merged executive summary sections.
type SummaryStore interface {
	SaveSummarySection(ctx context.Context, candidateID, section, text string) error
}

// MergerConfig holds configuration for the statement-merger service.
type MergerConfig struct {
	ProjectID      string
	VertexAIRegion string
	ModelName      string
	CollectionName string
}

// StatementMergerFunction merges executive summary drafts with Gemini.
type StatementMergerFunction struct {
	model contentGenerator
	store SummaryStore
}

var sectionPrompts = map[string]string{
	models.SummarySectionCredibility: gcp.CredibilityUserPrompt,
	models.SummarySectionResults:     gcp.ResultsUserPrompt,
}

var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// NewStatementMerger creates a new StatementMergerFunction from the environment.
func NewStatementMerger(ctx context.Context) (*StatementMergerFunction, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	config := MergerConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ModelName:      gcp.GetEnv("MERGE_MODEL", "gemini-1.5-pro"),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "candidates"),
	}

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.ModelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	store, err := gcp.NewCandidateStore(ctx, config.ProjectID, "", config.CollectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to create candidate store: %w", err)
	}

	return NewStatementMergerWith(vertexClient.MergerModel, store), nil
}

// NewStatementMergerWith wires the merger to explicit dependencies.
func NewStatementMergerWith(model contentGenerator, store SummaryStore) *StatementMergerFunction {
	return &StatementMergerFunction{model: model, store: store}
}

// Process merges the drafts for one summary section and saves the result.
func (f *StatementMergerFunction) Process(ctx context.Context, req *models.MergeStatementsRequest) (*models.MergeStatementsResponse, error) {
	userPrompt, err := validateMergeRequest(req)
	if err != nil {
		return nil, err
	}
	logCtx := slog.With("candidateId", req.CandidateID, "section", req.Section)
	logCtx.Info("Starting statement merge.", "draftCount", len(req.Drafts))

	resp, err := f.model.GenerateContent(ctx, genai.Text(buildMergePrompt(userPrompt, req)))
	if err != nil {
		logCtx.Error("Call to Vertex AI for statement merge failed", "error", err)
		return nil, fmt.Errorf("failed to generate merged statement from gemini: %w", err)
	}

	merged := extractText(resp)
	if merged == "" {
		err := fmt.Errorf("gemini returned an empty merge for candidate %s", req.CandidateID)
		logCtx.Error("Empty response from Gemini", "error", err)
		return nil, err
	}
	lowerMerged := strings.ToLower(merged)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lowerMerged, phrase) {
			err := fmt.Errorf("gemini response indicates refusal to merge %s statements", req.Section)
			logCtx.Error("LLM refusal detected", "error", err, "response", merged)
			return nil, err
		}
	}

	if err := f.store.SaveSummarySection(ctx, req.CandidateID, req.Section, merged); err != nil {
		logCtx.Error("Failed to save merged statement", "error", err)
		return nil, err
	}

	logCtx.Info("Statement merge complete.", "mergedLength", len(merged))
	return &models.MergeStatementsResponse{
		Status:     "success",
		Section:    req.Section,
		MergedText: merged,
	}, nil
}

func validateMergeRequest(req *models.MergeStatementsRequest) (string, error) {
	if strings.TrimSpace(req.CandidateID) == "" {
		return "", fmt.Errorf("%w: candidateId is required", ErrInvalidRequest)
	}
	prompt, ok := sectionPrompts[req.Section]
	if !ok {
		return "", fmt.Errorf("%w: section must be %q or %q", ErrInvalidRequest,
			models.SummarySectionCredibility, models.SummarySectionResults)
	}
	if len(nonBlank(req.Drafts)) == 0 {
		return "", fmt.Errorf("%w: at least one draft is required", ErrInvalidRequest)
	}
	return prompt, nil
}

func buildMergePrompt(userPrompt string, req *models.MergeStatementsRequest) string {
	var b strings.Builder
	b.WriteString(userPrompt)

	if existing := nonBlank(req.Existing); len(existing) > 0 {
		b.WriteString("\n\nExisting statements:\n")
		writeNumbered(&b, existing)
	}
	b.WriteString("\n\nNew drafts:\n")
	writeNumbered(&b, nonBlank(req.Drafts))

	if excerpt := strings.TrimSpace(req.ResumeText); excerpt != "" {
		if r := []rune(excerpt); len(r) > maxResumeExcerpt {
			excerpt = string(r[:maxResumeExcerpt])
		}
		b.WriteString("\n\nRésumé excerpt:\n")
		b.WriteString(excerpt)
	}
	return b.String()
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}

func nonBlank(items []string) []string {
	var out []string
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractText concatenates the text parts of the first candidate and strips code fences.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var contentBuilder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			contentBuilder.WriteString(string(txt))
		}
	}

	contentStr := strings.TrimSpace(contentBuilder.String())
	contentStr = strings.TrimPrefix(contentStr, "```markdown")
	contentStr = strings.TrimPrefix(contentStr, "```text")
	contentStr = strings.TrimPrefix(contentStr, "```")
	contentStr = strings.TrimSuffix(contentStr, "```")
	return strings.TrimSpace(contentStr)
}
