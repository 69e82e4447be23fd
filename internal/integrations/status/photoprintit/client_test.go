package photoprintit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BearBump/FilmTrack/internal/integrations/status"
	"github.com/BearBump/FilmTrack/internal/models"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClient_FetchStatus_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/order", r.URL.Path)
		require.Equal(t, "1234", r.URL.Query().Get("config"))
		require.Equal(t, "4711-123456", r.URL.Query().Get("fullOrderId"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "summaryStateText": "Ihr Auftrag wird bearbeitet",
  "summaryDate": "2024-03-01",
  "summaryStateCode": "PROCESSING",
  "subOrders": []
}`))
	}))
	defer srv.Close()

	c := New("mueller", status.VendorConfig{BaseURL: srv.URL + "/order", Config: "1234"}, 0)
	res, err := c.FetchStatus(context.Background(), models.FilmOrder{ShopID: "4711", OrderNumber: "123456"})
	require.NoError(t, err)
	require.Equal(t, "Ihr Auftrag wird bearbeitet", res.StateText)
	require.Equal(t, day(2024, 3, 1), *res.StateDate)
	require.Equal(t, models.OrderStateProcessing, res.State)
	require.Equal(t, "mueller", c.ID())
}

func TestClient_FetchStatus_HTTPAndJSONErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fullOrderId") == "1-bad" {
			_, _ = w.Write([]byte(`not json`))
			return
		}
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New("mueller", status.VendorConfig{BaseURL: srv.URL, Config: "1"}, 0)

	_, err := c.FetchStatus(context.Background(), models.FilmOrder{ShopID: "1", OrderNumber: "bad"})
	require.Equal(t, status.KindMalformedResponse, status.KindOf(err))

	_, err = c.FetchStatus(context.Background(), models.FilmOrder{ShopID: "1", OrderNumber: "2"})
	require.Equal(t, status.KindTransport, status.KindOf(err))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantText  string
		wantDate  time.Time
		wantState models.OrderState
		wantErr   bool
	}{
		{
			name:      "no suborders key returns summary",
			body:      `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"SHIPPED"}`,
			wantText:  "S",
			wantDate:  day(2024, 3, 1),
			wantState: models.OrderStateDone,
		},
		{
			name:      "empty suborders returns summary with unknown code",
			body:      `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"IN_LAB","subOrders":[]}`,
			wantText:  "S",
			wantDate:  day(2024, 3, 1),
			wantState: models.OrderStateUnknown,
		},
		{
			name: "latest suborder wins and its own code is mapped",
			body: `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"PROCESSING","subOrders":[
				{"stateText":"A","stateDate":"2024-03-03","stateCode":"PROCESSING"},
				{"stateText":"B","stateDate":"2024-03-05","stateCode":"SHIPPED"},
				{"stateText":"C","stateDate":"2024-03-04","stateCode":"PROCESSING"}]}`,
			wantText:  "B",
			wantDate:  day(2024, 3, 5),
			wantState: models.OrderStateDone,
		},
		{
			name: "summary wins a tie with a suborder",
			body: `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"PROCESSING","subOrders":[
				{"stateText":"A","stateDate":"2024-03-01","stateCode":"SHIPPED"}]}`,
			wantText:  "S",
			wantDate:  day(2024, 3, 1),
			wantState: models.OrderStateProcessing,
		},
		{
			name: "first suborder wins a tie with a later one",
			body: `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"PROCESSING","subOrders":[
				{"stateText":"A","stateDate":"2024-03-02","stateCode":"SHIPPED"},
				{"stateText":"B","stateDate":"2024-03-02","stateCode":"PROCESSING"}]}`,
			wantText:  "A",
			wantDate:  day(2024, 3, 2),
			wantState: models.OrderStateDone,
		},
		{
			name: "older suborders keep the summary",
			body: `{"summaryStateText":"S","summaryDate":"2024-03-10","summaryStateCode":"SHIPPED","subOrders":[
				{"stateText":"A","stateDate":"2024-03-02","stateCode":"PROCESSING"}]}`,
			wantText:  "S",
			wantDate:  day(2024, 3, 10),
			wantState: models.OrderStateDone,
		},
		{
			name:    "missing summary text",
			body:    `{"summaryDate":"2024-03-01","summaryStateCode":"SHIPPED"}`,
			wantErr: true,
		},
		{
			name:    "missing summary code",
			body:    `{"summaryStateText":"S","summaryDate":"2024-03-01"}`,
			wantErr: true,
		},
		{
			name:    "unparsable summary date",
			body:    `{"summaryStateText":"S","summaryDate":"01.03.2024","summaryStateCode":"SHIPPED"}`,
			wantErr: true,
		},
		{
			name: "unparsable suborder date fails the whole order",
			body: `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"SHIPPED","subOrders":[
				{"stateText":"A","stateDate":"2024-03-09","stateCode":"SHIPPED"},
				{"stateText":"B","stateDate":"gestern","stateCode":"SHIPPED"}]}`,
			wantErr: true,
		},
		{
			name: "suborder missing code fails the whole order",
			body: `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"SHIPPED","subOrders":[
				{"stateText":"A","stateDate":"2024-03-01"}]}`,
			wantErr: true,
		},
		{
			name:    "suborders of wrong type",
			body:    `{"summaryStateText":"S","summaryDate":"2024-03-01","summaryStateCode":"SHIPPED","subOrders":"none"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Parse([]byte(tt.body))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.wantText, res.StateText)
			require.NotNil(t, res.StateDate)
			require.Equal(t, tt.wantDate, *res.StateDate)
			require.Equal(t, tt.wantState, res.State)
		})
	}
}
