package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safetypro/rumore-server/internal/model"
	"github.com/safetypro/rumore-server/internal/testutil"
)

func TestDPIRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDPIRepository(db)
	user := testutil.TestUser(t, db)

	valutazione := &model.ValutazioneDPI{
		UserID:             user.ID,
		Mansione:           "Carrellista",
		DPISelezionato:     "Inserti auricolari",
		H:                  "25.00",
		M:                  "20.00",
		L:                  "18.00",
		LexPerDPI:          "84.00",
		ProtezioneAdeguata: "adeguata",
	}
	err := repo.Create(valutazione)
	require.NoError(t, err)
	assert.NotZero(t, valutazione.ID)
}

func TestDPIRepository_GetByIDAndUser_WrongUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDPIRepository(db)
	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)

	valutazione := testutil.TestDPI(t, db, owner.ID)

	found, err := repo.GetByIDAndUser(valutazione.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, valutazione.DPISelezionato, found.DPISelezionato)

	_, err = repo.GetByIDAndUser(valutazione.ID, stranger.ID)
	assert.Error(t, err)
}

func TestDPIRepository_ListByUser_FilterByAzienda(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDPIRepository(db)
	user := testutil.TestUser(t, db)
	azienda := testutil.TestAzienda(t, db, user.ID)

	testutil.TestDPI(t, db, user.ID, testutil.WithDPIAzienda(azienda.ID))
	testutil.TestDPI(t, db, user.ID)

	all, err := repo.ListByUser(user.ID, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := repo.ListByUser(user.ID, &azienda.ID)
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}

func TestDPIRepository_Update(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDPIRepository(db)
	user := testutil.TestUser(t, db)

	valutazione := testutil.TestDPI(t, db, user.ID)
	valutazione.ProtezioneAdeguata = "insufficiente"
	valutazione.Leff = "82.00"

	require.NoError(t, repo.Update(valutazione))

	found, err := repo.GetByIDAndUser(valutazione.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "insufficiente", found.ProtezioneAdeguata)
	assert.Equal(t, "82.00", found.Leff)
}

func TestDPIRepository_Delete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewDPIRepository(db)
	owner := testutil.TestUser(t, db)
	stranger := testutil.TestUser(t, db)

	valutazione := testutil.TestDPI(t, db, owner.ID)

	affected, err := repo.Delete(valutazione.ID, stranger.ID)
	require.NoError(t, err)
	assert.Zero(t, affected)

	affected, err = repo.Delete(valutazione.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
}
