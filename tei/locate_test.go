package tei

import (
	"strings"
	"testing"
)

func TestLocateSingleFigure(t *testing.T) {
	doc := []byte(`<doc><figure id="fig_1" coords="2,114.62,220.63,380.77,7.53"/></doc>`)

	figures, warnings, err := Locate(doc)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(figures) != 1 {
		t.Fatalf("expected 1 figure, got %d", len(figures))
	}

	f := figures[0]
	if f.Label != "fig_1" {
		t.Errorf("expected label fig_1, got %q", f.Label)
	}
	if f.Page != 2 {
		t.Errorf("expected page 2, got %d", f.Page)
	}
	if f.X != 114.62 || f.Y != 220.63 {
		t.Errorf("expected origin (114.62, 220.63), got (%v, %v)", f.X, f.Y)
	}
	if f.W != 380.77 || f.H != 7.53 {
		t.Errorf("expected size (380.77, 7.53), got (%v, %v)", f.W, f.H)
	}
}

func TestLocateNestedAndOrdered(t *testing.T) {
	doc := []byte(`<TEI>
		<text>
			<body>
				<div>
					<figure xml:id="fig_a" coords="1,10,20,30,40"/>
					<p>
						<figure xml:id="fig_b" coords="3,1,2,3,4"/>
					</p>
				</div>
				<figure xml:id="fig_c" coords="2,5,6,7,8"/>
			</body>
		</text>
	</TEI>`)

	figures, warnings, err := Locate(doc)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}

	want := []string{"fig_a", "fig_b", "fig_c"}
	if len(figures) != len(want) {
		t.Fatalf("expected %d figures, got %d", len(want), len(figures))
	}
	for i, label := range want {
		if figures[i].Label != label {
			t.Errorf("figure %d: expected label %q, got %q", i, label, figures[i].Label)
		}
	}
}

func TestLocateSkipsWithWarnings(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantFigures int
		wantWarning string
	}{
		{
			name:        "missing id",
			doc:         `<doc><figure coords="1,1,2,3,4"/></doc>`,
			wantFigures: 0,
			wantWarning: "missing identifier",
		},
		{
			name:        "missing coords",
			doc:         `<doc><figure id="fig_1"/></doc>`,
			wantFigures: 0,
			wantWarning: "missing coordinate",
		},
		{
			name:        "malformed coords",
			doc:         `<doc><figure id="fig_1" coords="1,2,banana,4,5"/></doc>`,
			wantFigures: 0,
			wantWarning: "malformed coordinates",
		},
		{
			name:        "too few fields",
			doc:         `<doc><figure id="fig_1" coords="1,2,3"/></doc>`,
			wantFigures: 0,
			wantWarning: "malformed coordinates",
		},
		{
			name:        "zero page",
			doc:         `<doc><figure id="fig_1" coords="0,1,2,3,4"/></doc>`,
			wantFigures: 0,
			wantWarning: "malformed coordinates",
		},
		{
			name:        "label with path traversal",
			doc:         `<doc><figure id="../escape" coords="1,1,2,3,4"/></doc>`,
			wantFigures: 0,
			wantWarning: "not usable as a file name",
		},
		{
			name:        "label with separator",
			doc:         `<doc><figure id="figs/one" coords="1,1,2,3,4"/></doc>`,
			wantFigures: 0,
			wantWarning: "not usable as a file name",
		},
		{
			name:        "label with backslash",
			doc:         `<doc><figure id="figs\one" coords="1,1,2,3,4"/></doc>`,
			wantFigures: 0,
			wantWarning: "not usable as a file name",
		},
		{
			name:        "empty label",
			doc:         `<doc><figure id="" coords="1,1,2,3,4"/></doc>`,
			wantFigures: 0,
			wantWarning: "not usable as a file name",
		},
		{
			name: "duplicate keeps first",
			doc: `<doc>
				<figure id="fig_1" coords="1,10,10,10,10"/>
				<figure id="fig_1" coords="2,20,20,20,20"/>
			</doc>`,
			wantFigures: 1,
			wantWarning: "duplicate label",
		},
		{
			name: "bad marker does not abort",
			doc: `<doc>
				<figure id="fig_1" coords="junk"/>
				<figure id="fig_2" coords="1,1,2,3,4"/>
			</doc>`,
			wantFigures: 1,
			wantWarning: "malformed coordinates",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			figures, warnings, err := Locate([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Locate returned error: %v", err)
			}
			if len(figures) != tt.wantFigures {
				t.Errorf("expected %d figures, got %d", tt.wantFigures, len(figures))
			}
			if len(warnings) == 0 {
				t.Fatal("expected a warning, got none")
			}
			if !strings.Contains(FormatWarnings(warnings), tt.wantWarning) {
				t.Errorf("expected warning containing %q, got %q", tt.wantWarning, FormatWarnings(warnings))
			}
		})
	}
}

func TestLocateDuplicateKeepsFirst(t *testing.T) {
	doc := []byte(`<doc>
		<figure id="fig_1" coords="1,10,10,10,10"/>
		<figure id="fig_1" coords="2,20,20,20,20"/>
	</doc>`)

	figures, _, err := Locate(doc)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if len(figures) != 1 {
		t.Fatalf("expected 1 figure, got %d", len(figures))
	}
	if figures[0].Page != 1 {
		t.Errorf("expected first occurrence (page 1) kept, got page %d", figures[0].Page)
	}
}

func TestParseCoords(t *testing.T) {
	tests := []struct {
		name    string
		coords  string
		page    int
		box     [4]float64
		wantErr bool
	}{
		{name: "basic", coords: "2,114.62,220.63,380.77,7.53", page: 2, box: [4]float64{114.62, 220.63, 380.77, 7.53}},
		{name: "extra fields ignored", coords: "1,1,2,3,4,99", page: 1, box: [4]float64{1, 2, 3, 4}},
		{name: "first segment only", coords: "1,1,2,3,4;2,5,6,7,8", page: 1, box: [4]float64{1, 2, 3, 4}},
		{name: "surrounding spaces", coords: " 3 , 1.5 ,2, 3 ,4 ", page: 3, box: [4]float64{1.5, 2, 3, 4}},
		{name: "empty", coords: "", wantErr: true},
		{name: "too few", coords: "1,2,3,4", wantErr: true},
		{name: "non-numeric page", coords: "one,1,2,3,4", wantErr: true},
		{name: "non-numeric coord", coords: "1,1,x,3,4", wantErr: true},
		{name: "negative page", coords: "-1,1,2,3,4", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, x, y, w, h, err := ParseCoords(tt.coords)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if page != tt.page {
				t.Errorf("expected page %d, got %d", tt.page, page)
			}
			got := [4]float64{x, y, w, h}
			if got != tt.box {
				t.Errorf("expected box %v, got %v", tt.box, got)
			}
		})
	}
}

func TestLocateHTMLDialect(t *testing.T) {
	doc := []byte(`<html><body>
		<div><figure id="fig_1" coords="2,114.62,220.63,380.77,7.53"></figure></div>
	</body></html>`)

	figures, warnings, err := LocateHTML(doc)
	if err != nil {
		t.Fatalf("LocateHTML returned error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
	if len(figures) != 1 {
		t.Fatalf("expected 1 figure, got %d", len(figures))
	}
	if figures[0].Label != "fig_1" || figures[0].Page != 2 {
		t.Errorf("unexpected figure %+v", figures[0])
	}
}

func TestLocateNormalizesLabels(t *testing.T) {
	// "é" spelled as e + combining acute; normalization folds it to
	// the precomposed form.
	doc := []byte("<doc><figure id=\"fig_é\" coords=\"1,1,2,3,4\"/></doc>")

	figures, _, err := Locate(doc)
	if err != nil {
		t.Fatalf("Locate returned error: %v", err)
	}
	if len(figures) != 1 {
		t.Fatalf("expected 1 figure, got %d", len(figures))
	}
	if figures[0].Label != "fig_é" {
		t.Errorf("expected NFC label %q, got %q", "fig_é", figures[0].Label)
	}
}

func TestLocateMalformedXML(t *testing.T) {
	if _, _, err := Locate([]byte(`<doc><figure`)); err == nil {
		t.Error("expected error for malformed document")
	}
	if _, _, err := Locate([]byte(``)); err == nil {
		t.Error("expected error for empty document")
	}
}
