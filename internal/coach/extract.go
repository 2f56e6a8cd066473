package coach

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	FoodAnalysisTag   = "food_analysis"
	RecommendationTag = "product_recommendation"
)

var (
	foodAnalysisRe   = tagRegexp(FoodAnalysisTag)
	recommendationRe = tagRegexp(RecommendationTag)
	strayTagRe       = regexp.MustCompile(`</?(?:` + FoodAnalysisTag + `|` + RecommendationTag + `)\s*>`)
	blankLinesRe     = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)+`)
	codeFenceRe      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*(.*?)\\s*```$")
)

func tagRegexp(tag string) *regexp.Regexp {
	return regexp.MustCompile(`(?s)<` + tag + `>(.*?)</` + tag + `>`)
}

// Extraction is the structured view of one raw model reply.
type Extraction struct {
	CleanText      string
	FoodAnalysis   *FoodAnalysis
	Recommendation *ProductRecommendation
}

// Extract pulls the food-analysis and recommendation blocks out of raw.
// Each block is parsed independently from its first occurrence; a block that
// fails to parse is reported in diags and left nil. Every tagged region,
// including later duplicates of an already parsed block, is removed from
// CleanText so no tag markers reach the user. Extract is pure.
func Extract(raw string) (Extraction, []error) {
	var (
		out   Extraction
		diags []error
	)

	if m := foodAnalysisRe.FindStringSubmatch(raw); m != nil {
		fa, err := parseFoodAnalysis(m[1])
		if err != nil {
			diags = append(diags, fmt.Errorf("%w: %s: %v", ErrMalformedBlock, FoodAnalysisTag, err))
		} else {
			out.FoodAnalysis = fa
		}
	}

	if m := recommendationRe.FindStringSubmatch(raw); m != nil {
		rec, err := parseRecommendation(m[1])
		if err != nil {
			diags = append(diags, fmt.Errorf("%w: %s: %v", ErrMalformedBlock, RecommendationTag, err))
		} else {
			out.Recommendation = rec
		}
	}

	out.CleanText = cleanReply(raw)
	return out, diags
}

func cleanReply(raw string) string {
	s := foodAnalysisRe.ReplaceAllString(raw, "")
	s = recommendationRe.ReplaceAllString(s, "")
	s = strayTagRe.ReplaceAllString(s, "")
	s = blankLinesRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

type rawFoodAnalysis struct {
	FoodName    string     `json:"food_name"`
	Calories    *flexFloat `json:"calories"`
	Protein     flexFloat  `json:"protein"`
	Carbs       flexFloat  `json:"carbs"`
	Fat         flexFloat  `json:"fat"`
	Confidence  string     `json:"confidence"`
	IsColombian flexBool   `json:"is_colombian"`
}

func parseFoodAnalysis(body string) (*FoodAnalysis, error) {
	var r rawFoodAnalysis
	if err := decodeBlock(body, &r); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(r.FoodName)
	if name == "" {
		return nil, errors.New("food_name is missing")
	}
	if r.Calories == nil {
		return nil, errors.New("calories is missing")
	}
	if err := nonNegative(*r.Calories, r.Protein, r.Carbs, r.Fat); err != nil {
		return nil, err
	}

	conf := Confidence(strings.ToLower(strings.TrimSpace(r.Confidence)))
	switch conf {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
	default:
		conf = ConfidenceLow
	}

	return &FoodAnalysis{
		FoodName:    name,
		Calories:    float64(*r.Calories),
		Protein:     float64(r.Protein),
		Carbs:       float64(r.Carbs),
		Fat:         float64(r.Fat),
		Confidence:  conf,
		IsColombian: bool(r.IsColombian),
	}, nil
}

type rawRecommendation struct {
	ProductName string    `json:"product_name"`
	Reason      string    `json:"reason"`
	Calories    flexFloat `json:"calories"`
	Protein     flexFloat `json:"protein"`
	Carbs       flexFloat `json:"carbs"`
	Fat         flexFloat `json:"fat"`
}

func parseRecommendation(body string) (*ProductRecommendation, error) {
	var r rawRecommendation
	if err := decodeBlock(body, &r); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(r.ProductName)
	if name == "" {
		return nil, errors.New("product_name is missing")
	}
	if err := nonNegative(r.Calories, r.Protein, r.Carbs, r.Fat); err != nil {
		return nil, err
	}

	return &ProductRecommendation{
		ProductName: name,
		Reason:      strings.TrimSpace(r.Reason),
		Calories:    float64(r.Calories),
		Protein:     float64(r.Protein),
		Carbs:       float64(r.Carbs),
		Fat:         float64(r.Fat),
	}, nil
}

// decodeBlock accepts the JSON object optionally wrapped in a markdown fence.
func decodeBlock(body string, v any) error {
	body = strings.TrimSpace(body)
	if m := codeFenceRe.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	if body == "" {
		return errors.New("block is empty")
	}

	dec := json.NewDecoder(strings.NewReader(body))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after JSON object")
	}
	return nil
}

// nonNegative checks calories, protein, carbs and fat in that order.
func nonNegative(values ...flexFloat) error {
	names := [...]string{"calories", "protein", "carbs", "fat"}
	for i, v := range values {
		if v < 0 {
			return fmt.Errorf("%s is negative", names[i])
		}
	}
	return nil
}

// flexFloat accepts 12, 12.5 or "12.5".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("not a number: %s", string(b))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("not a finite number: %s", string(b))
	}
	*f = flexFloat(v)
	return nil
}

// flexBool accepts true, false, "true" and "false".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.ToLower(strings.Trim(strings.TrimSpace(string(b)), `"`))
	switch s {
	case "true":
		*f = true
	case "false", "null", "":
		*f = false
	default:
		return fmt.Errorf("not a boolean: %s", string(b))
	}
	return nil
}
