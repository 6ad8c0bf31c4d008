package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

const (
	defaultAPIBase = "http://localhost:8080"

	chickenID = "6f1c1a52-0d3e-4b8a-9a51-000000000001"
	riceID    = "6f1c1a52-0d3e-4b8a-9a51-000000000002"
)

var (
	apiBase    string
	token      string
	email      string
	client     = &http.Client{Timeout: 30 * time.Second}
	createdIDs = make(map[string]string) // track created resources for cleanup
)

func main() {
	fmt.Println("=== FitClub E2E Smoke Test ===")
	fmt.Println()

	apiBase = getEnv("API_BASE_URL", defaultAPIBase)
	token = getEnv("SMOKE_TOKEN", "")
	email = getEnv("SMOKE_EMAIL", "smoke@fitclub.local")

	fmt.Printf("API Base: %s\n", apiBase)
	fmt.Printf("Token: %s\n", maskString(token))
	fmt.Println()

	steps := []struct {
		name string
		fn   func() error
	}{
		{"Healthz", testHealthz},
		{"Dev Sign In", testDevSignIn},
		{"Get Me", testGetMe},
		{"List Food Products", testListFoodProducts},
		{"Open Draft", testOpenDraft},
		{"Add Draft Items", testAddDraftItems},
		{"Submit Draft", testSubmitDraft},
		{"Plan Summary", testPlanSummary},
		{"Remove Plan Item", testRemovePlanItem},
		{"Calculate Targets", testCalculateTargets},
		{"Create Export (CSV)", testCreateExport},
		{"Download Export", testDownloadExport},
		{"Delete Export", testDeleteExport},
		{"Delete Plan", testDeletePlan},
	}

	failed := false
	for i, step := range steps {
		fmt.Printf("[%d/%d] %s... ", i+1, len(steps), step.name)
		if err := step.fn(); err != nil {
			fmt.Printf("❌ FAILED\n")
			fmt.Printf("  Error: %v\n\n", err)
			failed = true
			break
		}
		fmt.Printf("✅ OK\n")
	}

	fmt.Println()
	if failed {
		fmt.Println("❌ SMOKE TEST FAILED")
		os.Exit(1)
	}

	fmt.Println("✅ ALL SMOKE TESTS PASSED")
}

func testHealthz() error {
	return call("GET", "/healthz", nil, nil, http.StatusOK)
}

func testDevSignIn() error {
	// Token supplied via env wins over dev login
	if token != "" {
		return nil
	}

	var result struct {
		AccessToken string `json:"access_token"`
	}
	payload := map[string]string{"email": email, "name": "Smoke", "role": "coach"}
	if err := call("POST", "/v1/auth/dev", payload, &result, http.StatusOK); err != nil {
		return err
	}
	if result.AccessToken == "" {
		return fmt.Errorf("empty access token")
	}
	token = result.AccessToken
	return nil
}

func testGetMe() error {
	var me struct {
		ID string `json:"id"`
	}
	if err := call("GET", "/v1/me", nil, &me, http.StatusOK); err != nil {
		return err
	}
	if me.ID == "" {
		return fmt.Errorf("me: empty id")
	}
	return nil
}

func testListFoodProducts() error {
	var result struct {
		Products []struct {
			ID string `json:"id"`
		} `json:"products"`
	}
	if err := call("GET", "/v1/food-products", nil, &result, http.StatusOK); err != nil {
		return err
	}
	for _, p := range result.Products {
		if p.ID == chickenID {
			return nil
		}
	}
	return fmt.Errorf("system product %s not in catalog", chickenID)
}

func testOpenDraft() error {
	var draft struct {
		ID string `json:"id"`
	}
	payload := map[string]string{"name": "Smoke plan " + time.Now().Format("2006-01-02 15:04")}
	if err := call("POST", "/v1/plan-drafts", payload, &draft, http.StatusCreated); err != nil {
		return err
	}
	createdIDs["draft"] = draft.ID
	return nil
}

func testAddDraftItems() error {
	path := "/v1/plan-drafts/" + createdIDs["draft"] + "/ops"
	ops := []map[string]interface{}{
		{"op": "add_item", "product_id": chickenID, "quantity": 150},
		{"op": "add_item", "product_id": riceID, "quantity": 200},
		{"op": "add_day"},
		{"op": "add_item", "product_id": riceID, "quantity": 100},
	}
	for _, op := range ops {
		if err := call("POST", path, op, nil, http.StatusOK); err != nil {
			return fmt.Errorf("op %v: %w", op["op"], err)
		}
	}
	return nil
}

func testSubmitDraft() error {
	var plan struct {
		ID string `json:"id"`
	}
	if err := call("POST", "/v1/plan-drafts/"+createdIDs["draft"]+"/submit", nil, &plan, http.StatusCreated); err != nil {
		return err
	}
	createdIDs["plan"] = plan.ID
	return nil
}

func testPlanSummary() error {
	var summary struct {
		Days []struct {
			DayNumber int `json:"day_number"`
		} `json:"days"`
		AveragePerDay struct {
			Calories float64 `json:"calories"`
		} `json:"average_per_day"`
	}
	if err := call("GET", "/v1/nutrition-plans/"+createdIDs["plan"]+"/summary", nil, &summary, http.StatusOK); err != nil {
		return err
	}
	if len(summary.Days) != 2 {
		return fmt.Errorf("expected 2 days, got %d", len(summary.Days))
	}
	// (247.5 + 260 + 130) / 2
	if math.Abs(summary.AveragePerDay.Calories-318.75) > 0.01 {
		return fmt.Errorf("unexpected average calories %.1f", summary.AveragePerDay.Calories)
	}
	return nil
}

func testRemovePlanItem() error {
	return call("DELETE", "/v1/nutrition-plans/"+createdIDs["plan"]+"/days/1/meals/1/items/2", nil, nil, http.StatusOK)
}

func testCalculateTargets() error {
	payload := map[string]interface{}{
		"goal":           "maintain",
		"activity_level": "moderate",
		"gender":         "male",
		"age":            30,
		"height_cm":      180,
		"weight_kg":      80,
	}
	var result struct {
		TargetCalories float64 `json:"target_calories"`
	}
	if err := call("POST", "/v1/user-nutrition-plans/calculate", payload, &result, http.StatusOK); err != nil {
		return err
	}
	if result.TargetCalories != 2759 {
		return fmt.Errorf("unexpected target calories %.0f", result.TargetCalories)
	}
	return nil
}

func testCreateExport() error {
	var export struct {
		ID          string `json:"id"`
		DownloadURL string `json:"download_url"`
	}
	payload := map[string]string{"format": "csv"}
	if err := call("POST", "/v1/nutrition-plans/"+createdIDs["plan"]+"/exports", payload, &export, http.StatusCreated); err != nil {
		return err
	}
	if export.DownloadURL == "" {
		return fmt.Errorf("empty download_url")
	}
	createdIDs["export"] = export.ID
	return nil
}

func testDownloadExport() error {
	// Don't follow redirects: in S3 mode a 302 to the presigned URL is success.
	noRedirect := &http.Client{
		Timeout: client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	req, err := http.NewRequest("GET", apiBase+"/v1/exports/"+createdIDs["export"]+"/download", nil)
	if err != nil {
		return err
	}
	addAuth(req)

	resp, err := noRedirect.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if !bytes.HasPrefix(data, []byte("day,meal_number")) {
			return fmt.Errorf("unexpected CSV header: %q", string(data[:min(len(data), 40)]))
		}
		return nil
	case http.StatusFound:
		if resp.Header.Get("Location") == "" {
			return fmt.Errorf("redirect without Location")
		}
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return fmt.Errorf("unexpected status=%d body=%s", resp.StatusCode, string(body))
}

func testDeleteExport() error {
	return call("DELETE", "/v1/exports/"+createdIDs["export"], nil, nil, http.StatusNoContent)
}

func testDeletePlan() error {
	return call("DELETE", "/v1/nutrition-plans/"+createdIDs["plan"], nil, nil, http.StatusNoContent)
}

// Helper functions

// call sends payload as JSON, checks the status and decodes the response into out.
func call(method, path string, payload interface{}, out interface{}, wantStatus int) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, apiBase+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	addAuth(req)

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
	}
	return nil
}

func addAuth(req *http.Request) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func maskString(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
