package extraction

// KeywordGroup is one category of place keywords scanned by the extractor.
type KeywordGroup struct {
	Category string   `yaml:"category" json:"category"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// DefaultKeywordGroups returns the built-in category cascade, ordered by how
// often the AI coordinator mentions each kind of place.
func DefaultKeywordGroups() []KeywordGroup {
	return []KeywordGroup{
		{Category: "park", Keywords: []string{"공원", "놀이터"}},
		{Category: "kids", Keywords: []string{"키즈카페", "어린이", "체험관"}},
		{Category: "clinic", Keywords: []string{"병원", "의원", "약국"}},
		{Category: "cafe", Keywords: []string{"카페", "식당", "레스토랑"}},
		{Category: "school", Keywords: []string{"학교", "도서관", "박물관"}},
		{Category: "sports", Keywords: []string{"수영장", "체육관"}},
		{Category: "shopping", Keywords: []string{"마트", "센터", "상가", "플라자"}},
		{Category: "landmark", Keywords: []string{"타워", "터미널"}},
		{Category: "address", Keywords: []string{"대로", "번길"}},
	}
}
