// Package classify assigns a document type to raw document text using
// content and filename signals. It is deliberately cheap: a handful of
// regex probes per type, scored by match count.
package classify

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/dgrange/loanpipe/internal/model"
	"github.com/dgrange/loanpipe/internal/textract"
)

// contentHead bounds how much text the content probes look at.
const contentHead = 5000

var contentPatterns = map[model.DocumentType][]*regexp.Regexp{
	model.DocTypePFS: {
		regexp.MustCompile(`(?i)personal\s+financial\s+statement`),
		regexp.MustCompile(`(?i)statement\s+of\s+financial\s+condition`),
		regexp.MustCompile(`(?is)assets.*liabilities.*net\s+worth`),
	},
	model.DocTypeSBAForm413: {
		regexp.MustCompile(`(?i)sba\s+form\s+413`),
		regexp.MustCompile(`(?i)personal\s+financial\s+statement.*sba`),
	},
	model.DocTypeTaxReturn1040: {
		regexp.MustCompile(`(?i)form\s+1040(\s|$)`),
		regexp.MustCompile(`(?i)u\.?s\.?\s+individual\s+income\s+tax\s+return`),
	},
	model.DocTypeTaxReturn1065: {
		regexp.MustCompile(`(?i)form\s+1065`),
		regexp.MustCompile(`(?i)partnership\s+return`),
	},
	model.DocTypeTaxReturn1120S: {
		regexp.MustCompile(`(?i)form\s+1120s`),
		regexp.MustCompile(`(?i)s\s+corporation\s+income\s+tax`),
	},
	model.DocTypeBalanceSheet: {
		regexp.MustCompile(`(?i)balance\s+sheet`),
		regexp.MustCompile(`(?i)statement\s+of\s+financial\s+position`),
	},
	model.DocTypeProfitLoss: {
		regexp.MustCompile(`(?i)profit\s+(and|&)\s+loss`),
		regexp.MustCompile(`(?i)income\s+statement`),
		regexp.MustCompile(`(?i)statement\s+of\s+operations`),
	},
	model.DocTypeDebtSchedule: {
		regexp.MustCompile(`(?i)debt\s+schedule`),
		regexp.MustCompile(`(?i)loan\s+schedule`),
		regexp.MustCompile(`(?is)creditor.*balance.*payment`),
	},
	model.DocTypeBankStatement: {
		regexp.MustCompile(`(?i)account\s+statement`),
		regexp.MustCompile(`(?is)beginning\s+balance.*ending\s+balance`),
	},
}

var filenamePatterns = map[model.DocumentType][]*regexp.Regexp{
	model.DocTypePFS: {
		regexp.MustCompile(`(?i)pfs`),
		regexp.MustCompile(`(?i)personal.*financial`),
	},
	model.DocTypeTaxReturn1040: {
		regexp.MustCompile(`1040`),
		regexp.MustCompile(`(?i)personal.*tax`),
	},
	model.DocTypeTaxReturn1065: {
		regexp.MustCompile(`1065`),
		regexp.MustCompile(`(?i)partnership.*return`),
	},
	model.DocTypeTaxReturn1120S: {
		regexp.MustCompile(`(?i)1120s?`),
	},
	model.DocTypeBalanceSheet: {
		regexp.MustCompile(`(?i)balance.*sheet`),
	},
	model.DocTypeProfitLoss: {
		regexp.MustCompile(`(?i)\bp\s*&\s*l\b`),
		regexp.MustCompile(`(?i)profit.*loss`),
	},
	model.DocTypeDebtSchedule: {
		regexp.MustCompile(`(?i)debt.*schedule`),
		regexp.MustCompile(`(?i)loan.*schedule`),
	},
	model.DocTypeBankStatement: {
		regexp.MustCompile(`(?i)bank.*statement`),
	},
}

// Classifier assigns document types from content and filename signals.
type Classifier struct {
	log               *slog.Logger
	pdftotextFallback bool
}

func New(log *slog.Logger, pdftotextFallback bool) *Classifier {
	if log == nil {
		log = slog.Default()
	}
	return &Classifier{log: log, pdftotextFallback: pdftotextFallback}
}

// Classify reads the document's text and returns the best type match.
// Extraction failures degrade to an unknown/zero-confidence result;
// Classify itself never fails.
func (c *Classifier) Classify(ctx context.Context, path string) model.ClassificationResult {
	var content string
	ex, err := textract.ForFile(path, c.pdftotextFallback)
	if err == nil {
		res, exErr := ex.ExtractText(ctx, path)
		if exErr != nil {
			c.log.Warn("classifier text extraction failed", "path", path, "error", exErr)
		} else {
			content = res.Text
		}
	}
	return c.ClassifyContent(path, content)
}

// ClassifyContent classifies from already-extracted text. Filename signals
// win when strong and get a boost when content agrees.
func (c *Classifier) ClassifyContent(path, content string) model.ClassificationResult {
	fileResult := classifyByFilename(filepath.Base(path))
	contentResult := classifyByContent(content)

	result := contentResult
	if fileResult.Confidence > 0.7 {
		result = fileResult
		if contentResult.DocumentType == fileResult.DocumentType && contentResult.Confidence > 0 {
			result.Confidence = min(0.95, result.Confidence+0.1)
			result.Reasoning += "; content agrees"
		}
	} else if contentResult.DocumentType == model.DocTypeUnknown && fileResult.DocumentType != model.DocTypeUnknown {
		result = fileResult
	}

	result.Fingerprint = Fingerprint(content)
	if result.Metadata == nil {
		result.Metadata = map[string]string{}
	}
	result.Metadata["file_name"] = filepath.Base(path)
	return result
}

func classifyByFilename(name string) model.ClassificationResult {
	var best model.DocumentType = model.DocTypeUnknown
	var alternates []model.DocumentType
	for _, docType := range orderedTypes(filenamePatterns) {
		for _, p := range filenamePatterns[docType] {
			if p.MatchString(name) {
				if best == model.DocTypeUnknown {
					best = docType
				} else {
					alternates = append(alternates, docType)
				}
				break
			}
		}
	}
	if best == model.DocTypeUnknown {
		return model.ClassificationResult{
			DocumentType: model.DocTypeUnknown,
			Reasoning:    "no filename signal",
		}
	}
	return model.ClassificationResult{
		DocumentType:     best,
		Confidence:       0.75,
		Reasoning:        fmt.Sprintf("filename %q matches %s", name, best),
		AlternativeTypes: alternates,
	}
}

func classifyByContent(content string) model.ClassificationResult {
	if strings.TrimSpace(content) == "" {
		return model.ClassificationResult{
			DocumentType: model.DocTypeUnknown,
			Reasoning:    "no content available",
		}
	}
	head := content
	if len(head) > contentHead {
		head = head[:contentHead]
	}

	scores := make(map[model.DocumentType]int)
	for docType, patterns := range contentPatterns {
		for _, p := range patterns {
			if p.MatchString(head) {
				scores[docType]++
			}
		}
	}
	if len(scores) == 0 {
		return model.ClassificationResult{
			DocumentType: model.DocTypeUnknown,
			Reasoning:    "no content patterns matched",
		}
	}

	ranked := make([]model.DocumentType, 0, len(scores))
	for t := range scores {
		ranked = append(ranked, t)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if scores[ranked[i]] != scores[ranked[j]] {
			return scores[ranked[i]] > scores[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	best := ranked[0]
	matchCount := scores[best]
	patternCount := len(contentPatterns[best])
	confidence := min(0.95, 0.5+float64(matchCount)/float64(patternCount)*0.45)

	return model.ClassificationResult{
		DocumentType:     best,
		Confidence:       confidence,
		Reasoning:        fmt.Sprintf("%d/%d content patterns matched", matchCount, patternCount),
		AlternativeTypes: ranked[1:],
	}
}

// Fingerprint returns a stable content hash over the normalized text head.
func Fingerprint(content string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(content), " "))
	if len(norm) > contentHead {
		norm = norm[:contentHead]
	}
	h := sha256.Sum256([]byte(norm))
	return fmt.Sprintf("%x", h[:])
}

func orderedTypes(m map[model.DocumentType][]*regexp.Regexp) []model.DocumentType {
	out := make([]model.DocumentType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
