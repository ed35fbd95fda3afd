package mongostore

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"torrents/internal/store"
)

func TestContainsFoldQuotesInput(t *testing.T) {
	f := containsFold("A.B*(C)")
	pattern := f["$regex"].(string)
	assert.NotContains(t, f, "$options")

	re := regexp.MustCompile(pattern)
	assert.True(t, re.MatchString("xx a.b*(c) yy"))
	assert.False(t, re.MatchString("axbbbc"))
}

func TestContainsFoldFoldsUnicode(t *testing.T) {
	f := containsFold("ÉCLAIR Ü")
	assert.Equal(t, "éclair ü", f["$regex"])
}

func TestWindowFilter(t *testing.T) {
	assert.Equal(t, bson.M{}, windowFilter(store.Window{}))

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.FixedZone("x", 3600))
	f := windowFilter(store.Window{From: from})
	dates := f["upload_date"].(bson.M)
	assert.Equal(t, from.UTC(), dates["$gte"])
	assert.NotContains(t, dates, "$lte")
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("op", nil))
	assert.ErrorIs(t, translate("op", mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate("op", dup), store.ErrDuplicate)

	var qe *store.QueryError
	assert.ErrorAs(t, translate("op", assert.AnError), &qe)
}
