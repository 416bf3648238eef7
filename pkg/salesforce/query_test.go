package salesforce

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cadence-sync/internal/model"
)

func testFieldMap() *model.FieldMap {
	return &model.FieldMap{
		ExternalIDField: "Id",
		FirstName:       "FirstName",
		LastName:        "LastName",
		Company:         "Company",
		OwnerID:         "OwnerId",
		JobPosition:     "Title",
		Emails: []model.TypedColumn{
			{Type: "work", ColumnName: "Email"},
		},
		Phones: []model.TypedColumn{
			{Type: "mobile", ColumnName: "MobilePhone"},
			{Type: "work", ColumnName: "Phone"},
		},
	}
}

func TestMappedFields(t *testing.T) {
	fields := mappedFields(testFieldMap())

	assert.Equal(t, []string{
		"Company", "Email", "FirstName", "Id", "LastName", "MobilePhone", "OwnerId", "Phone", "Title",
	}, fields, "sorted, deduplicated, Id included once")
}

func TestMappedFields_AlwaysIncludesID(t *testing.T) {
	fields := mappedFields(&model.FieldMap{
		ExternalIDField: "External_Key__c",
		FirstName:       "FirstName",
		LastName:        "LastName",
		Company:         "Company",
		OwnerID:         "OwnerId",
	})

	assert.Contains(t, fields, "Id")
	assert.Contains(t, fields, "External_Key__c")
}

func TestQueryBuilder_ByID(t *testing.T) {
	qb := NewQueryBuilder("Lead", &model.FieldMap{
		ExternalIDField: "Id",
		FirstName:       "FirstName",
		LastName:        "LastName",
		Company:         "Company",
		OwnerID:         "OwnerId",
	})

	soql := qb.ByID("00Q5e00000abc")
	assert.Equal(t,
		"SELECT Company, FirstName, Id, LastName, OwnerId FROM Lead WHERE Id = '00Q5e00000abc' LIMIT 1",
		soql)
}

func TestQueryBuilder_ByID_EscapesQuotes(t *testing.T) {
	qb := NewQueryBuilder("Lead", testFieldMap())

	soql := qb.ByID("x' OR Name != '")
	assert.Contains(t, soql, `WHERE Id = 'x\' OR Name != \''`)
}

func TestQueryBuilder_Page_FirstPage(t *testing.T) {
	qb := NewQueryBuilder("Contact", &model.FieldMap{
		ExternalIDField: "Id",
		FirstName:       "FirstName",
		LastName:        "LastName",
		Company:         "Account.Name",
		OwnerID:         "OwnerId",
	})

	soql := qb.Page("", 200)
	require.NotContains(t, soql, "WHERE")
	assert.Contains(t, soql, "FROM Contact ORDER BY Id LIMIT 200")
}

func TestQueryBuilder_Page_AfterID(t *testing.T) {
	qb := NewQueryBuilder("Lead", testFieldMap())

	soql := qb.Page("00Q5e00000last", 50)
	assert.Contains(t, soql, "WHERE Id > '00Q5e00000last'")
	assert.Contains(t, soql, "ORDER BY Id LIMIT 50")
}
