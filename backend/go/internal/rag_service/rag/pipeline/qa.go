package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"Aethena/backend/go/internal/rag_service/rag/interfaces"
	"Aethena/backend/go/internal/rag_service/rag/schema"
	"Aethena/backend/go/pkg/logger"
)

const (
	// NoAnswer is returned verbatim when the documents do not answer the question.
	NoAnswer = "I couldn't find a definitive answer in the uploaded documents."

	// NoContext stands in for the context block when retrieval found nothing.
	NoContext = "(no context retrieved)"

	// DefaultMaxContextChars bounds the context block in characters.
	DefaultMaxContextChars = 12000

	contextSeparator = "\n\n"
)

// SystemPrompt constrains the model to the supplied context.
const SystemPrompt = `You are a document assistant. Answer the user's question using ONLY the information in the provided context.

Rules:
1. Do not use outside knowledge and never invent facts, names, numbers or sources.
2. Each context passage starts with a header in square brackets naming its file and location. Cite every statement inline in the form (source: <file>, page <n>), copying the file and location from that header.
3. Preserve key facts, figures and quotations from the context verbatim where they are relevant.
4. If the context does not contain enough information to answer, reply exactly: "` + NoAnswer + `"`

// QAPipeline generates an answer from a question and a context block.
type QAPipeline struct {
	llm interfaces.LLM
	log *logger.Logger
}

// NewQAPipeline creates a new QAPipeline.
func NewQAPipeline(llm interfaces.LLM, log *logger.Logger) *QAPipeline {
	return &QAPipeline{llm: llm, log: log}
}

// Run calls the model once. Failures are reported as ErrGeneration.
func (p *QAPipeline) Run(ctx context.Context, question, contextBlock string) (string, error) {
	answer, err := p.llm.Generate(ctx, SystemPrompt, BuildUserMessage(question, contextBlock))
	if err != nil {
		return "", ensureKind(schema.ErrGeneration, err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("%w: empty answer", schema.ErrGeneration)
	}
	return answer, nil
}

// BuildUserMessage lays out the context and the question for the model.
func BuildUserMessage(question, contextBlock string) string {
	return "Context:\n" + contextBlock + "\n\nQuestion:\n" + question
}

// BuildContext joins hit texts in rank order, each preceded by a citation
// header such as "[report.pdf, page 14]", keeping at most maxChars characters
// including headers. Lower-ranked hits are dropped first; a top hit that alone
// exceeds the budget is truncated. It returns the block and the hits that
// made it in. With no hits the block is NoContext.
func BuildContext(hits []schema.SearchHit, maxChars int) (string, []schema.SearchHit) {
	if maxChars <= 0 {
		maxChars = DefaultMaxContextChars
	}
	var (
		sb       strings.Builder
		used     int
		included []schema.SearchHit
	)
	sepLen := utf8.RuneCountInString(contextSeparator)
	for _, hit := range hits {
		if hit.Unit == nil || strings.TrimSpace(hit.Unit.Text) == "" {
			continue
		}
		header := CitationHeader(hit.Unit) + "\n"
		entry := header + hit.Unit.Text
		n := utf8.RuneCountInString(entry)
		if len(included) == 0 {
			if n > maxChars {
				entry = truncateEntry(header, hit.Unit.Text, maxChars)
				n = utf8.RuneCountInString(entry)
			}
		} else if used+sepLen+n > maxChars {
			break
		} else {
			sb.WriteString(contextSeparator)
			used += sepLen
		}
		sb.WriteString(entry)
		used += n
		included = append(included, hit)
	}
	if len(included) == 0 {
		return NoContext, nil
	}
	return sb.String(), included
}

// CitationHeader names the unit's file and location the way the model is
// asked to cite it. CSV labels already carry the row.
func CitationHeader(u *schema.RetrievableUnit) string {
	label := u.SourceLabel
	if label == "" {
		label = u.SourceFile
	}
	if u.Position == nil || u.FileType == schema.FileTypeCSV {
		return "[" + label + "]"
	}
	unit := "page"
	if u.FileType == schema.FileTypeDOCX {
		unit = "section"
	}
	return fmt.Sprintf("[%s, %s %d]", label, unit, *u.Position)
}

// truncateEntry keeps the header whole when it fits and cuts the text.
func truncateEntry(header, text string, maxChars int) string {
	room := maxChars - utf8.RuneCountInString(header)
	if room <= 0 {
		return string([]rune(header + text)[:maxChars])
	}
	return header + string([]rune(text)[:room])
}

// SourcesFor maps included hits to citations in rank order.
func SourcesFor(hits []schema.SearchHit) []schema.Source {
	sources := make([]schema.Source, 0, len(hits))
	for _, hit := range hits {
		file := hit.Unit.SourceLabel
		if file == "" {
			file = hit.Unit.SourceFile
		}
		var page *int
		if hit.Unit.Position != nil {
			page = schema.IntPtr(*hit.Unit.Position)
		}
		sources = append(sources, schema.Source{File: file, Page: page})
	}
	return sources
}
