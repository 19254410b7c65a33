// Package e2e provides end-to-end tests over a generated corpus of raw condition documents.
package e2e

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/medrag/internal/fileid"
)

// Condition is one generated raw document: a disease with one subsection per category.
type Condition struct {
	Disease   string
	Overview  string
	Symptoms  string
	Treatment string
}

// QueryTestCase is a question and the chunk that must be among the retrieved chunks.
type QueryTestCase struct {
	Question        string
	ExpectedChunkID string
	Description     string
}

// Corpus holds the generated conditions and the questions asked against them.
type Corpus struct {
	Conditions []Condition
	TestCases  []QueryTestCase
}

// Each entry carries words that appear in no other entry so a question built from them
// has one clear best chunk.
var conditionSeeds = []struct {
	disease   string
	symptoms  string
	treatment string
}{
	{"influenza", "sudden fever chills muscle aches dry cough", "oseltamivir antiviral rest fluids"},
	{"measles", "koplik spots maculopapular rash conjunctivitis", "vitamin supplementation supportive isolation"},
	{"asthma", "wheezing chest tightness nocturnal breathlessness", "inhaled corticosteroids bronchodilator inhaler"},
	{"diabetes", "polyuria polydipsia unexplained weight loss", "insulin metformin glucose monitoring"},
	{"migraine", "throbbing unilateral headache photophobia aura", "triptans darkened room hydration"},
	{"tuberculosis", "persistent productive cough night sweats hemoptysis", "isoniazid rifampicin multidrug regimen"},
	{"malaria", "cyclical paroxysms rigors splenomegaly", "artemisinin combination chloroquine prophylaxis"},
	{"psoriasis", "silvery scaly plaques elbows knees", "topical calcipotriol phototherapy biologics"},
	{"gout", "swollen red big toe joint urate crystals", "colchicine allopurinol purine restriction"},
	{"anemia", "pallor fatigue brittle nails pica", "ferrous sulfate iron rich diet transfusion"},
	{"appendicitis", "periumbilical pain migrating mcburney point rebound tenderness", "appendectomy laparoscopic surgery"},
	{"shingles", "dermatomal vesicular blisters burning neuralgia", "acyclovir valacyclovir zoster vaccine"},
	{"cholera", "profuse rice water diarrhea dehydration", "oral rehydration salts doxycycline"},
	{"glaucoma", "peripheral vision loss halos elevated intraocular pressure", "latanoprost eye drops trabeculectomy"},
	{"hypothyroidism", "cold intolerance constipation puffy face", "levothyroxine tsh titration"},
	{"eczema", "itchy inflamed flexural skin lichenification", "emollients moisturizers tacrolimus ointment"},
	{"pneumonia", "consolidation crackles pleuritic pain", "amoxicillin azithromycin oxygen therapy"},
	{"scabies", "intense nocturnal itching burrows between fingers", "permethrin cream ivermectin laundering"},
	{"rabies", "hydrophobia agitation hypersalivation", "postexposure immunoglobulin vaccination series"},
	{"lupus", "malar butterfly rash arthralgia photosensitivity", "hydroxychloroquine immunosuppressants"},
}

// BuildCorpus returns the generated conditions and one symptom and one treatment question per condition.
func BuildCorpus() *Corpus {
	c := &Corpus{}
	for _, seed := range conditionSeeds {
		cond := Condition{
			Disease:   seed.disease,
			Overview:  strings.ToUpper(seed.disease[:1]) + seed.disease[1:] + " is a condition described in this reference.",
			Symptoms:  seed.symptoms,
			Treatment: seed.treatment,
		}
		c.Conditions = append(c.Conditions, cond)
		c.TestCases = append(c.TestCases,
			QueryTestCase{
				Question:        "Which condition causes " + seed.symptoms + "?",
				ExpectedChunkID: fileid.StableChunkID(seed.disease, "Symptoms", "Common signs"),
				Description:     seed.disease + " symptoms",
			},
			QueryTestCase{
				Question:        "Is " + seed.treatment + " a treatment?",
				ExpectedChunkID: fileid.StableChunkID(seed.disease, "Treatment", "Options"),
				Description:     seed.disease + " treatment",
			},
		)
	}
	return c
}

// RawDocument returns the raw JSON document for a condition, categories in a fixed order.
func (c Condition) RawDocument() []byte {
	doc := fmt.Sprintf(`{"Overview": {"Summary": %s}, "Symptoms": {"Common signs": %s}, "Treatment": {"Options": %s}}`,
		quote(c.Overview), quote(c.Symptoms), quote(c.Treatment))
	return []byte(doc)
}

// WriteRawDocuments writes one <disease>.json file per condition into dir.
func (c *Corpus) WriteRawDocuments(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, cond := range c.Conditions {
		if err := os.WriteFile(filepath.Join(dir, cond.Disease+".json"), cond.RawDocument(), 0600); err != nil {
			return err
		}
	}
	return nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
