package booking

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediflow/scheduling-api/internal/model"
	booking "github.com/mediflow/scheduling-api/internal/service/booking"
	"github.com/mediflow/scheduling-api/internal/service/servicetest"
)

func setupRouter(t *testing.T) (*gin.Engine, *servicetest.Store, *model.User, *model.User, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, model.RegisterValidations())

	store := servicetest.NewStore()
	doctor := store.AddUser(model.User{FirstName: "Ravi", LastName: "Menon", Role: model.RoleDoctor, Active: true})
	patient := store.AddUser(model.User{FirstName: "Maya", LastName: "Iyer", Role: model.RolePatient, Active: true})

	date := model.DateOnly(time.Now().AddDate(0, 0, 1))
	start, _ := model.ParseTimeOfDay("09:00")
	store.AddSlot(model.Slot{
		DoctorID:  doctor.ID,
		Date:      date,
		StartTime: start,
		EndTime:   start.Add(30 * time.Minute),
		Status:    model.SlotStatusAvailable,
		Type:      model.SlotTypeRegular,
	})

	svc := booking.NewService(store.Users(), store.Slots(), store.Appointments())
	h := NewHandler(svc)

	engine := gin.New()
	h.RegisterRoutes(engine.Group("/api/v1"))

	return engine, store, doctor, patient, date.Format(model.DateLayout)
}

func postJSON(t *testing.T, engine *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestBookAppointmentEndpoint(t *testing.T) {
	engine, _, doctor, patient, date := setupRouter(t)

	w := postJSON(t, engine, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":        doctor.ID,
		"patient_id":       patient.ID,
		"appointment_date": date,
		"slot_time":        "09:00",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Success bool              `json:"success"`
		Data    model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, model.AppointmentStatusBooked, resp.Data.Status)
}

func TestBookAppointmentEndpointConflict(t *testing.T) {
	engine, store, doctor, patient, date := setupRouter(t)

	body := map[string]interface{}{
		"doctor_id":        doctor.ID,
		"patient_id":       patient.ID,
		"appointment_date": date,
		"slot_time":        "09:00",
	}
	require.Equal(t, http.StatusCreated, postJSON(t, engine, "/api/v1/appointments", body).Code)

	other := store.AddUser(model.User{FirstName: "Dev", LastName: "Shah", Role: model.RolePatient, Active: true})
	body["patient_id"] = other.ID
	w := postJSON(t, engine, "/api/v1/appointments", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, http.StatusConflict, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "not available")
}

func TestBookAppointmentEndpointBadPayload(t *testing.T) {
	engine, _, doctor, patient, _ := setupRouter(t)

	// Malformed date fails binding before the service runs.
	w := postJSON(t, engine, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":        doctor.ID,
		"patient_id":       patient.ID,
		"appointment_date": "15-09-2026",
		"slot_time":        "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAppointmentEndpoint(t *testing.T) {
	engine, store, doctor, patient, date := setupRouter(t)

	w := postJSON(t, engine, "/api/v1/appointments", map[string]interface{}{
		"doctor_id":        doctor.ID,
		"patient_id":       patient.ID,
		"appointment_date": date,
		"slot_time":        "09:00",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/"+resp.Data.ID.String(), nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, model.AppointmentStatusCancelled, store.Appointment(resp.Data.ID).Status)

	// A second cancel is a validation error.
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown id is a 404.
	req = httptest.NewRequest(http.MethodDelete, "/api/v1/appointments/00000000-0000-0000-0000-000000000001", nil)
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
