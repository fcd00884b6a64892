package survey

import (
	"regexp"
	"strconv"
)

// Answers maps a question code to the single selected answer label.
type Answers map[string]string

// Point is one question's contribution to a total score.
type Point struct {
	Code     string  `json:"code"`
	Label    string  `json:"label"`
	Answer   string  `json:"answer,omitempty"`
	Weight   float64 `json:"weight"`
	Answered bool    `json:"answered"`
}

// Result is a computed score with its per-question breakdown, in catalog order.
type Result struct {
	Total  float64 `json:"total"`
	Points []Point `json:"points"`
}

var ordinalPrefix = regexp.MustCompile(`^(\d+)\s*[.)、:]`)

// Weight maps an answer to its weight. The second result is false when the
// answer could not be mapped and the missing weight was used instead.
func (q *Question) Weight(answer string) (float64, bool) {
	a := Normalize(answer)
	if a == "" {
		return q.missing, false
	}
	if i, ok := q.choices[a]; ok {
		return float64(q.Weights[i]), true
	}
	if m := ordinalPrefix.FindStringSubmatch(a); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 && n <= len(q.Weights) {
			return float64(q.Weights[n-1]), true
		}
	}
	return q.missing, false
}

// Score sums the weights of every catalog question. It never fails: a
// question that is absent or unmappable contributes its missing weight, and
// answers for codes outside the catalog are ignored.
func (c *Catalog) Score(a Answers) Result {
	res := Result{Points: make([]Point, 0, len(c.Questions))}
	for i := range c.Questions {
		q := &c.Questions[i]
		ans, present := a[q.Code]
		w, mapped := q.Weight(ans)
		res.Total += w
		res.Points = append(res.Points, Point{
			Code:     q.Code,
			Label:    q.Label,
			Answer:   ans,
			Weight:   w,
			Answered: present && mapped,
		})
	}
	return res
}
