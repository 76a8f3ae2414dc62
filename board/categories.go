package board

import "strings"

// AllCategories is the wildcard filter value. It is never stored on a post.
const AllCategories = "All"

// Categories is the closed list of departments a post can belong to.
// Filters and forms share this one list.
var Categories = []string{
	"Africana Studies",
	"American Studies",
	"Anthropology",
	"Arabic",
	"Archaeology",
	"Art & Art History",
	"Astronomy",
	"Biochemistry & Molecular Biology",
	"Biology",
	"Business",
	"Chemistry",
	"Chinese",
	"Classical Studies",
	"Computer Science",
	"Creative Writing",
	"Dance",
	"Data Analytics",
	"East Asian Studies",
	"Economics",
	"Educational Studies",
	"Engineering",
	"English",
	"Environmental Studies",
	"Ethics",
	"Film & Media Studies",
	"Food Studies",
	"French & Francophone Studies",
	"Geosciences",
	"German",
	"Greek",
	"Health Studies",
	"Hebrew",
	"History",
	"Humanities",
	"Interdisciplinary Studies",
	"International Business & Management",
	"International Studies",
	"Italian & Italian Studies",
	"Japanese",
	"Journalism",
	"Judaic Studies",
	"Latin",
	"Latin American, Latinx & Caribbean Studies",
	"Law & Policy",
	"Mathematics",
	"Medieval & Early Modern Studies",
	"Middle East Studies",
	"Military Science & ROTC",
	"Music",
	"Neuroscience",
	"Philosophy",
	"Physics",
	"Political Science",
	"Portuguese & Brazilian Studies",
	"Psychology",
	"Quantitative Economics",
	"Religion",
	"Russian",
	"Science, Technology & Culture",
	"Security Studies",
	"Self-Developed",
	"Sexuality Studies",
	"Sociology",
	"Spanish",
	"Sustainability",
	"Theatre",
	"Womens, Gender & Sexuality Studies",
	"Writing Program",
}

// DefaultCategory is preselected by the creation flow.
var DefaultCategory = Categories[0]

// CategoryGroup clusters departments for the filter dropdown.
type CategoryGroup struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// CategoryGroups partitions Categories for display. Every category appears in exactly one group.
var CategoryGroups = []CategoryGroup{
	{Name: "Arts & Humanities", Categories: []string{
		"Art & Art History", "Classical Studies", "Creative Writing", "Dance", "English",
		"Film & Media Studies", "French & Francophone Studies", "German", "Greek", "Hebrew",
		"History", "Humanities", "Italian & Italian Studies", "Japanese", "Journalism", "Latin",
		"Latin American, Latinx & Caribbean Studies", "Medieval & Early Modern Studies", "Music",
		"Philosophy", "Portuguese & Brazilian Studies", "Religion", "Russian", "Spanish",
		"Theatre", "Writing Program",
	}},
	{Name: "Social Sciences", Categories: []string{
		"Africana Studies", "American Studies", "Anthropology", "Archaeology", "Economics",
		"Educational Studies", "Environmental Studies", "Ethics", "Food Studies", "Health Studies",
		"International Studies", "Law & Policy", "Middle East Studies", "Political Science",
		"Psychology", "Quantitative Economics", "Security Studies", "Sociology", "Sustainability",
		"Womens, Gender & Sexuality Studies",
	}},
	{Name: "Sciences & Technology", Categories: []string{
		"Astronomy", "Biochemistry & Molecular Biology", "Biology", "Chemistry", "Computer Science",
		"Data Analytics", "Engineering", "Geosciences", "Mathematics", "Neuroscience", "Physics",
		"Science, Technology & Culture",
	}},
	{Name: "Business & Professional", Categories: []string{
		"Business", "International Business & Management", "Military Science & ROTC",
	}},
	{Name: "Interdisciplinary", Categories: []string{
		"Arabic", "Chinese", "East Asian Studies", "Interdisciplinary Studies", "Judaic Studies",
		"Sexuality Studies", "Self-Developed",
	}},
}

var categorySet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(Categories))
	for _, c := range Categories {
		m[c] = struct{}{}
	}
	return m
}()

// IsCategory reports whether c is a storable category.
func IsCategory(c string) bool {
	_, ok := categorySet[c]
	return ok
}

// IsFilterCategory reports whether c is accepted by the list filter.
func IsFilterCategory(c string) bool {
	return c == AllCategories || IsCategory(c)
}

// FilterCategories is the wildcard followed by every category.
func FilterCategories() []string {
	return append([]string{AllCategories}, Categories...)
}

// DisplayName is the label shown for a filter value.
func DisplayName(c string) string {
	if c == AllCategories {
		return "All Majors"
	}
	return c
}

// SearchCategories returns the groups holding categories that contain term, case-insensitively.
// Groups with no match are dropped; an empty term returns every group.
func SearchCategories(term string) []CategoryGroup {
	needle := strings.ToLower(strings.TrimSpace(term))
	out := make([]CategoryGroup, 0, len(CategoryGroups))
	for _, g := range CategoryGroups {
		var matched []string
		for _, c := range g.Categories {
			if strings.Contains(strings.ToLower(c), needle) {
				matched = append(matched, c)
			}
		}
		if len(matched) > 0 {
			out = append(out, CategoryGroup{Name: g.Name, Categories: matched})
		}
	}
	return out
}
