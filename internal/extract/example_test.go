package extract_test

import (
	"encoding/json"
	"fmt"

	"docscan/internal/extract"
	"docscan/internal/record"
	"docscan/internal/rules"
	"docscan/pkg/models"
)

// ExampleExtract shows a one-off extraction from OCR spans.
func ExampleExtract() {
	raw := []models.RawSpan{
		{Text: "Invoice # 4471", Confidence: 0.60, Line: 0},
		{Text: "Total: $ 250.00", Confidence: 0.55, Line: 1},
	}
	fieldRules := []rules.FieldRule{
		rules.MustRegexRule("invoice_number", `#\s*(?P<value>\d+)`, 10, true),
		rules.MustRegexRule("total_amount", `\$\s*(?P<value>\d+(?:\.\d{2})?)`, 10, true),
	}
	schema := record.Schema{"total_amount": {Type: record.TypeNumber}}

	rec, err := extract.Extract(raw, fieldRules, schema)
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	fields, _ := json.Marshal(rec.Fields())
	fmt.Println(string(fields))
	fmt.Printf("overall %.3f, %d warnings\n", rec.OverallConfidence(), len(rec.Warnings()))
	// Output:
	// {"invoice_number":"4471","total_amount":250.00}
	// overall 0.575, 0 warnings
}

// ExampleExtractor_Extract shows a preset rule set and the severity-ordered report.
func ExampleExtractor_Extract() {
	set, err := rules.Preset("invoice")
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	ex := extract.NewExtractor(set, extract.DefaultOptions())

	rec, err := ex.Extract([]models.RawSpan{
		{Text: "Invoice No: RE-2024-017", Confidence: 0.93, Line: 0},
		{Text: "Date: 15.03.2024", Confidence: 0.41, Line: 1},
	})
	if err != nil {
		fmt.Println("error:", err)
		return
	}

	for _, w := range rec.Report() {
		fmt.Println(w.Kind, w.Field)
	}
	fmt.Println(rec.Row([]string{"invoice_number", "invoice_date"}))
	// Output:
	// missing_required_field total_amount
	// low_confidence_field invoice_date
	// [RE-2024-017 2024-03-15]
}
