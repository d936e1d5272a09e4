package models

import (
	"encoding/json"
	"testing"
)

func TestImmichMetricsErrorMarshalsBare(t *testing.T) {
	data, err := json.Marshal(&ImmichMetrics{Error: "connection refused"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(doc) != 1 {
		t.Errorf("Error payload should carry only the error field, got %v", doc)
	}
	if doc["error"] != "connection refused" {
		t.Errorf("Expected error message, got %v", doc["error"])
	}
}

func TestImmichMetricsSuccessMarshalsFields(t *testing.T) {
	data, err := json.Marshal(&ImmichMetrics{TotalAssets: 1200})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if doc["total_assets"] != float64(1200) {
		t.Errorf("Expected total_assets, got %v", doc)
	}
	if _, ok := doc["error"]; ok {
		t.Error("Successful payload should not carry an error field")
	}
}

func TestCloudflareMetricsErrorKeepsConfigured(t *testing.T) {
	data, err := json.Marshal(&CloudflareMetrics{
		Error:      "CloudFlare API returned 401",
		Configured: true,
	})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(doc) != 2 {
		t.Errorf("Error payload should carry only error and configured, got %v", doc)
	}
	if doc["configured"] != true {
		t.Errorf("Expected configured=true preserved, got %v", doc["configured"])
	}
}
