package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/safetypro/rumore-server/config"
	"github.com/safetypro/rumore-server/internal/model/dto"
	"github.com/safetypro/rumore-server/internal/pkg/response"
	"github.com/safetypro/rumore-server/internal/repository"
	"github.com/safetypro/rumore-server/internal/service"
	"github.com/safetypro/rumore-server/internal/testutil"
)

func setupEsposizioneHandler(t *testing.T) (*EsposizioneHandler, *gorm.DB, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	entitlement := service.NewEntitlementService(
		repository.NewSubscriptionRepository(db),
		repository.NewAziendaRepository(db),
		repository.NewEsposizioneRepository(db),
		repository.NewDPIRepository(db),
		repository.NewDocumentoRepository(db),
		&config.FreeTierConfig{MaxAziende: 3, MaxValutazioniEsposizioneMonth: 10, MaxValutazioniDPIMonth: 3},
	)
	svc := service.NewEsposizioneService(
		repository.NewEsposizioneRepository(db),
		repository.NewAziendaRepository(db),
		repository.NewUserRepository(db),
		entitlement,
	)
	handler := NewEsposizioneHandler(svc)

	return handler, db, func() { testutil.CleanupTestDB(t, db) }
}

func esposizioneRequest(misurazioni ...string) dto.CreateEsposizioneRequest {
	inputs := make([]dto.MisurazioneInput, 0, len(misurazioni))
	for _, attivita := range misurazioni {
		inputs = append(inputs, dto.MisurazioneInput{
			Attivita: attivita,
			Leq:      "85.50",
			Durata:   "120.00",
			Lpicco:   "130.00",
		})
	}
	return dto.CreateEsposizioneRequest{
		Mansione:      "Operatore pressa",
		Reparto:       "Stampaggio",
		Misurazioni:   inputs,
		Lex:           "87.20",
		Lpicco:        "135.00",
		ClasseRischio: "alto",
	}
}

func TestEsposizioneHandler_CreateAndGet_PreservesMisurazioniOrder(t *testing.T) {
	handler, db, cleanup := setupEsposizioneHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/valutazioni/esposizione", asUser(user.ID), handler.Create)
	router.GET("/valutazioni/esposizione/:id", asUser(user.ID), handler.Get)

	w := performRequest(router, "POST", "/valutazioni/esposizione",
		esposizioneRequest("Pressatura", "Molatura", "Saldatura"))
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	created, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	id := int64(created["id"].(float64))

	w = performRequest(router, "GET", fmt.Sprintf("/valutazioni/esposizione/%d", id), nil)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	misurazioni := data["misurazioni"].([]interface{})
	require.Len(t, misurazioni, 3)
	for i, want := range []string{"Pressatura", "Molatura", "Saldatura"} {
		m := misurazioni[i].(map[string]interface{})
		assert.Equal(t, want, m["attivita"])
		assert.Equal(t, float64(i), m["ordine"])
	}
}

func TestEsposizioneHandler_Update_ReplacesMisurazioni(t *testing.T) {
	handler, db, cleanup := setupEsposizioneHandler(t)
	defer cleanup()

	user := testutil.TestUser(t, db)

	router := gin.New()
	router.POST("/valutazioni/esposizione", asUser(user.ID), handler.Create)
	router.PUT("/valutazioni/esposizione/:id", asUser(user.ID), handler.Update)

	w := performRequest(router, "POST", "/valutazioni/esposizione",
		esposizioneRequest("Pressatura", "Molatura", "Saldatura"))
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	id := int64(resp.Data.(map[string]interface{})["id"].(float64))

	update := dto.UpdateEsposizioneRequest{
		Misurazioni: []dto.MisurazioneInput{
			{Attivita: "Taglio laser", Leq: "82.00", Durata: "240.00", Lpicco: "128.00"},
			{Attivita: "Assemblaggio", Leq: "78.50", Durata: "180.00", Lpicco: "120.00"},
		},
	}
	w = performRequest(router, "PUT", fmt.Sprintf("/valutazioni/esposizione/%d", id), update)
	resp = parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	data := resp.Data.(map[string]interface{})
	misurazioni := data["misurazioni"].([]interface{})
	require.Len(t, misurazioni, 2)
	first := misurazioni[0].(map[string]interface{})
	assert.Equal(t, "Taglio laser", first["attivita"])
	assert.Equal(t, float64(0), first["ordine"])
}

func TestEsposizioneHandler_Get_WrongOwner(t *testing.T) {
	handler, db, cleanup := setupEsposizioneHandler(t)
	defer cleanup()

	owner := testutil.TestUser(t, db)
	intruder := testutil.TestUser(t, db, testutil.WithEmail("intruso@example.com"))

	ownerRouter := gin.New()
	ownerRouter.POST("/valutazioni/esposizione", asUser(owner.ID), handler.Create)

	w := performRequest(ownerRouter, "POST", "/valutazioni/esposizione",
		esposizioneRequest("Pressatura"))
	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)
	id := int64(resp.Data.(map[string]interface{})["id"].(float64))

	intruderRouter := gin.New()
	intruderRouter.GET("/valutazioni/esposizione/:id", asUser(intruder.ID), handler.Get)

	w = performRequest(intruderRouter, "GET", fmt.Sprintf("/valutazioni/esposizione/%d", id), nil)
	resp = parseResponse(t, w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)
}
