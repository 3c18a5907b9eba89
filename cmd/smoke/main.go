package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const defaultAPIBase = "http://localhost:8080"

var (
	apiBase  string
	token    string
	client   = &http.Client{Timeout: 30 * time.Second}
	reportID string
	mealID   string
)

func main() {
	fmt.Println("=== FitTrack E2E Smoke Test ===")
	fmt.Println()

	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	token = getEnv("SMOKE_TOKEN", "")

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Dev Auth", testDevAuth},
		{"Update Profile", testUpdateProfile},
		{"Get Metrics", testGetMetrics},
		{"Add Meal", testAddMeal},
		{"List Meals", testListMeals},
		{"Health Score", testHealthScore},
		{"Add Session", testAddSession},
		{"Sessions Summary", testSessionsSummary},
		{"Track Start/Fix/Stop", testLiveTracking},
		{"Create Report (CSV)", testCreateReport},
		{"Download Report", testDownloadReport},
		{"Delete Report", testDeleteReport},
		{"Delete Meal", testDeleteMeal},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("SMOKE TEST FAILED")
		os.Exit(1)
	}
	fmt.Println("SMOKE TEST PASSED")
}

func testHealthz() error {
	resp, err := doGet("/healthz")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func testDevAuth() error {
	if token != "" {
		return nil // explicit token wins
	}
	resp, err := doPost("/v1/auth/dev", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if body.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	token = body.AccessToken
	return nil
}

func testUpdateProfile() error {
	payload := map[string]any{
		"name":          "Smoke Tester",
		"age":           30,
		"weight":        70,
		"height":        175,
		"gender":        "male",
		"activityLevel": "moderate",
		"goal":          "maintain",
	}
	resp, err := doPut("/v1/profile", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func testGetMetrics() error {
	resp, err := doGet("/v1/profile/metrics")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	var metrics struct {
		BMI float64 `json:"bmi"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&metrics); err != nil {
		return err
	}
	if metrics.BMI <= 0 {
		return fmt.Errorf("bmi = %v", metrics.BMI)
	}
	return nil
}

func testAddMeal() error {
	payload := map[string]any{
		"mealType": "lunch",
		"foods": []map[string]any{
			{"name": "Chicken bowl", "calories": 620, "protein": 45, "carbs": 55, "fat": 20},
		},
	}
	resp, err := doPost("/v1/meals", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	var meal struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meal); err != nil {
		return err
	}
	if meal.ID == "" {
		return fmt.Errorf("empty meal id")
	}
	mealID = meal.ID
	return nil
}

func testListMeals() error {
	resp, err := doGet("/v1/meals")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Meals         []json.RawMessage `json:"meals"`
		TodayCalories float64           `json:"todayCalories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if len(body.Meals) == 0 {
		return fmt.Errorf("no meals returned")
	}
	if body.TodayCalories <= 0 {
		return fmt.Errorf("todayCalories = %v", body.TodayCalories)
	}
	return nil
}

func testHealthScore() error {
	resp, err := doGet("/v1/profile/score")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func testAddSession() error {
	payload := map[string]any{
		"type":     "running",
		"distance": 5.0,
		"duration": 1800,
		"calories": 250,
		"steps":    6500,
		"avgSpeed": 10.0,
	}
	resp, err := doPost("/v1/sessions", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	return nil
}

func testSessionsSummary() error {
	resp, err := doGet("/v1/sessions/summary")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func testLiveTracking() error {
	resp, err := doPost("/v1/track/start", map[string]any{"type": "walking"})
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("start: status %d", resp.StatusCode)
	}

	now := time.Now().UnixMilli()
	fixes := []map[string]any{
		{"lat": 55.7558, "lon": 37.6173, "timestamp": now},
		{"lat": 55.7568, "lon": 37.6183, "timestamp": now + 10000},
	}
	for _, fix := range fixes {
		resp, err = doPost("/v1/track/fix", fix)
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			return fmt.Errorf("fix: status %d", resp.StatusCode)
		}
	}

	resp, err = doGet("/v1/track/stats")
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stats: status %d", resp.StatusCode)
	}

	resp, err = doPost("/v1/track/stop", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stop: status %d", resp.StatusCode)
	}
	return nil
}

func testCreateReport() error {
	to := time.Now().Format("2006-01-02")
	from := time.Now().AddDate(0, 0, -7).Format("2006-01-02")
	payload := map[string]any{"from": from, "to": to, "format": "csv"}
	resp, err := doPost("/v1/reports", payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp))
	}
	var report struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return err
	}
	if report.ID == "" {
		return fmt.Errorf("empty report id")
	}
	reportID = report.ID
	return nil
}

func testDownloadReport() error {
	resp, err := doGet("/v1/reports/" + reportID + "/download")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func testDeleteReport() error {
	resp, err := doDelete("/v1/reports/" + reportID)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

func testDeleteMeal() error {
	resp, err := doDelete("/v1/meals/" + mealID)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}

// ---- HTTP helpers ----

func doGet(path string) (*http.Response, error) {
	return doRequest(http.MethodGet, path, nil)
}

func doPost(path string, payload any) (*http.Response, error) {
	return doRequest(http.MethodPost, path, payload)
}

func doPut(path string, payload any) (*http.Response, error) {
	return doRequest(http.MethodPut, path, payload)
}

func doDelete(path string) (*http.Response, error) {
	return doRequest(http.MethodDelete, path, nil)
}

func doRequest(method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return client.Do(req)
}

func readBody(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return string(data)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
