package storage

import "database/sql"

// InfoRecord is one row of an info lookup: the department name and the
// value of the requested column.
type InfoRecord struct {
	Department string `json:"department"`
	Value      string `json:"value"`
}

// CollegeInfo is a full row of the info table, used for seeding.
type CollegeInfo struct {
	Name                string        `json:"name"`
	FeesStructure       sql.NullInt64 `json:"fees_structure"`
	EligibilityCriteria string        `json:"eligibility_criteria"`
	Scholarships        string        `json:"scholarships"`
}
