package agents

import "strings"

const maxRoles = 5

type roleRule struct {
	keyword string
	role    string
}

// roleTable maps skill keywords to roles. Rules are applied in order.
var roleTable = []roleRule{
	{"Machine Learning", "Machine Learning Engineer"},
	{"Cloud Computing", "Cloud Data Scientist"},
	{"Statistics", "Data Scientist"},
	{"Sql", "Data Analyst"},
	{"Tableau", "BI Analyst"},
	{"Predictive Modeling", "AI Specialist"},
	{"React", "Frontend Developer"},
	{"Javascript", "Web Developer"},
	{"Python", "Python Developer"},
	{"Cloud", "Cloud Engineer"},
	{"Kubernetes", "DevOps Engineer"},
	{"Aws", "Cloud Engineer"},
}

// StaticRoles looks roles up in the built-in table. A role is picked when
// its keyword is a case-insensitive substring of any of the keywords.
func StaticRoles(keywords []string) []string {
	roles := make([]string, 0, maxRoles)
	seen := make(map[string]struct{}, maxRoles)

	for _, kw := range keywords {
		lower := strings.ToLower(kw)
		for _, rule := range roleTable {
			if !strings.Contains(lower, strings.ToLower(rule.keyword)) {
				continue
			}
			if _, ok := seen[rule.role]; ok {
				continue
			}
			seen[rule.role] = struct{}{}
			roles = append(roles, rule.role)
			if len(roles) == maxRoles {
				return roles
			}
		}
	}

	return roles
}
