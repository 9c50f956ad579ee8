package corpus

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"avvai/internal/constants"
	"avvai/internal/utils"
)

const (
	ColVerseNo       = "Verse_No"
	ColVerse         = "Verse"
	ColGloss         = "Original_English"
	ColExplanation   = "Rich_English_Explanation"
	ColEmbeddingText = "Embedding_Text"
)

var (
	ErrCorpusMissing = errors.New("corpus file missing")
	ErrCorpusEmpty   = errors.New("corpus has no verses")
)

var requiredColumns = []string{ColVerseNo, ColVerse, ColGloss, ColExplanation}

// Load reads the first path that exists. .xlsx goes through excelize, everything else is treated as CSV.
func Load(paths []string) ([]constants.Verse, string, error) {
	for _, p := range paths {
		if !utils.FileExists(p) {
			log.Debug().Str("path", p).Msg("Corpus candidate not found")
			continue
		}

		rows, err := readRows(p)
		if err != nil {
			return nil, p, fmt.Errorf("read %s: %w", p, err)
		}
		verses, err := ParseRows(rows)
		if err != nil {
			return nil, p, fmt.Errorf("parse %s: %w", p, err)
		}
		return verses, p, nil
	}
	return nil, "", fmt.Errorf("%w: tried %s", ErrCorpusMissing, strings.Join(paths, ", "))
}

func readRows(path string) ([][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return readXLSX(path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // pandas leaves ragged rows when trailing cells are empty
	return reader.ReadAll()
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

// ParseRows turns a header row plus data rows into verses. Ordinal follows row order.
func ParseRows(rows [][]string) ([]constants.Verse, error) {
	if len(rows) == 0 {
		return nil, ErrCorpusEmpty
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := header[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}
	embedCol, hasEmbedCol := header[ColEmbeddingText]

	cell := func(row []string, idx int) string {
		if idx < len(row) {
			return strings.TrimSpace(row[idx])
		}
		return ""
	}

	verses := make([]constants.Verse, 0, len(rows)-1)
	for line, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		verseNo, err := parseVerseNo(cell(row, header[ColVerseNo]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", line+2, err)
		}

		explanation := cell(row, header[ColExplanation])
		embeddingText := explanation
		if hasEmbedCol {
			if text := cell(row, embedCol); text != "" {
				embeddingText = text
			}
		}

		verses = append(verses, constants.Verse{
			VerseNo:       verseNo,
			Text:          cell(row, header[ColVerse]),
			Gloss:         cell(row, header[ColGloss]),
			Explanation:   explanation,
			EmbeddingText: embeddingText,
			Ordinal:       len(verses),
		})
	}

	if len(verses) == 0 {
		return nil, ErrCorpusEmpty
	}
	return verses, nil
}

// parseVerseNo accepts "7" and the "7.0" that spreadsheets like to write
func parseVerseNo(raw string) (int, error) {
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("invalid %s %q", ColVerseNo, raw)
	}
	return int(f), nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
