package jobboard

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/maxaizer/jobboard-alerts/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

const baseURL = "https://jobs.example.com/api"

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func fileResponse(t *testing.T, path string) *http.Response {
	file, err := os.ReadFile(path)
	require.NoError(t, err)
	return response(http.StatusOK, string(file))
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestClient(httpClient HTTPClient) *Client {
	client := NewClient(baseURL+"/", "secret")
	client.SetHTTPClient(httpClient)
	client.retryDelay = 0
	return client
}

func Test_JobBoardClient_GetSuggestedJobs_ShouldBeSuccessful(t *testing.T) {

	assert := assert.New(t)

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.Method == http.MethodGet &&
			req.URL.String() == baseURL+"/users/7/suggested-jobs" &&
			req.Header.Get("Authorization") == "Bearer secret"
	})).Return(fileResponse(t, "testdata/get_suggested_jobs.json"), nil)

	suggestions, err := newTestClient(mockClient).GetSuggestedJobs(context.Background(), 7)
	assert.NoError(err)

	assert.Len(suggestions, 2)
	assert.Equal(int64(5), suggestions[0].ID)
	assert.Equal(int64(42), suggestions[0].Job.ID)
	assert.Equal(models.SuggestionPending, suggestions[0].Estado)
	assert.Equal("Laura (reclutadora)", suggestions[0].SugeridoPor)
	assert.Equal(models.SuggestionViewed, suggestions[1].Estado)
	assert.False(suggestions[1].HasApplied)
}

func Test_JobBoardClient_GetApplications_ShouldDecodeStatusHistory(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == baseURL+"/users/7/applications"
	})).Return(fileResponse(t, "testdata/get_applications.json"), nil)

	applications, err := newTestClient(mockClient).GetApplications(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, applications, 1)

	assert.Equal(t, models.StatusCvViewed, applications[0].Status)
	assert.Equal(t, int64(42), applications[0].JobID)
	assert.Len(t, applications[0].StatusHistory, 2)
	assert.Equal(t, models.StatusApplied, applications[0].StatusHistory[0].Status)
}

func Test_JobBoardClient_CheckApplication_ShouldSendJobID(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		return req.URL.String() == baseURL+"/users/7/applications/check?job_id=42"
	})).Return(response(http.StatusOK, `{"has_applied": true}`), nil)

	applied, err := newTestClient(mockClient).CheckApplication(context.Background(), 7, 42)

	assert.NoError(t, err)
	assert.True(t, applied)
}

func Test_JobBoardClient_UpdateSuggestedJobStatus_ShouldPatchEstado(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.MatchedBy(func(req *http.Request) bool {
		if req.Method != http.MethodPatch || req.URL.String() != baseURL+"/users/7/suggested-jobs/5" {
			return false
		}
		reader, err := req.GetBody()
		if err != nil {
			return false
		}
		var payload map[string]string
		return json.NewDecoder(reader).Decode(&payload) == nil && payload["estado"] == "descartado"
	})).Return(response(http.StatusNoContent, ""), nil)

	err := newTestClient(mockClient).UpdateSuggestedJobStatus(context.Background(), 7, 5, models.SuggestionDismissed)

	assert.NoError(t, err)
	mockClient.AssertExpectations(t)
}

func Test_JobBoardClient_ChangePassword_WhenRejected_ShouldReturnDisplayableMessage(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).
		Return(response(http.StatusBadRequest, `{"detail": "La contraseña actual es incorrecta"}`), nil)

	err := newTestClient(mockClient).ChangePassword(context.Background(), 7, "wrong", "Nueva1234", "Nueva1234")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "La contraseña actual es incorrecta", UserMessage(err))
}

func Test_JobBoardClient_WhenServerError_ShouldRetryGet(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(response(http.StatusBadGateway, "oops"), nil).Once()
	mockClient.On("Do", mock.Anything).Return(response(http.StatusOK, `[{"id": 1, "title": "QA"}]`), nil).Once()

	jobs, err := newTestClient(mockClient).GetJobs(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []models.Job{{ID: 1, Title: "QA"}}, jobs)
	mockClient.AssertNumberOfCalls(t, "Do", 2)
}

func Test_JobBoardClient_WhenClientError_ShouldNotRetry(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(response(http.StatusNotFound, "not json"), nil)

	_, err := newTestClient(mockClient).GetJobs(context.Background())

	require.Error(t, err)
	assert.Equal(t, defaultErrorMessage, UserMessage(err))
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}

func Test_JobBoardClient_WhenCancelledDuringRetryDelay_ShouldStopWaiting(t *testing.T) {

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Run(func(mock.Arguments) { cancel() }).
		Return(response(http.StatusBadGateway, "oops"), nil)

	client := newTestClient(mockClient)
	client.retryDelay = time.Minute

	started := time.Now()
	_, err := client.GetJobs(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(started), 5*time.Second)
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}

func Test_JobBoardClient_SetTimeout_ShouldKeepInjectedClient(t *testing.T) {

	mockClient := &mockHTTPClient{}
	mockClient.On("Do", mock.Anything).Return(response(http.StatusOK, `[]`), nil)

	client := newTestClient(mockClient)
	client.SetTimeout(3 * time.Second)

	_, err := client.GetJobs(context.Background())

	assert.NoError(t, err)
	mockClient.AssertNumberOfCalls(t, "Do", 1)
}

func Test_JobBoardClient_SetTimeout_ShouldApplyToDefaultClient(t *testing.T) {

	client := NewClient(baseURL, "secret")
	client.SetTimeout(3 * time.Second)

	httpClient, ok := client.httpClient.(*http.Client)
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, httpClient.Timeout)
}
