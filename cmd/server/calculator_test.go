package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/primeestate/internal/pricing"
	"github.com/Simplici0/primeestate/internal/store"
)

func calculatorValues(price, propertyType, region, mortgage string) url.Values {
	return url.Values{
		"price":            {price},
		"property_type":    {propertyType},
		"region":           {region},
		"include_mortgage": {mortgage},
	}
}

func TestParseCalculatorFormDefaults(t *testing.T) {
	req := postForm("/calculator", url.Values{"price": {" 180000 "}})
	if err := req.ParseForm(); err != nil {
		t.Fatalf("parse form: %v", err)
	}

	form, in, ok, err := parseCalculatorForm(req)
	if err != nil || !ok {
		t.Fatalf("expected a usable input, got ok=%v err=%v", ok, err)
	}
	if form.Price != "180000" || form.PropertyType != "resale" || form.Region != "valencia" || form.IncludeMortgage {
		t.Fatalf("unexpected form defaults: %+v", form)
	}
	if in.PropertyType != pricing.Resale || in.Region != pricing.Valencia || !in.Price.Equal(decimal.NewFromInt(180000)) {
		t.Fatalf("unexpected input: %+v", in)
	}
}

func TestParseCalculatorFormMortgageFlag(t *testing.T) {
	for raw, want := range map[string]bool{"1": true, "yes": true, "on": true, "true": true, "0": false, "": false, "no": false} {
		if got := parseBool(raw); got != want {
			t.Fatalf("parseBool(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestCalculatorPreviewRendersBreakdown(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, postForm("/calculator/preview", calculatorValues("250000", "resale", "valencia", "0")), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := rr.Body.String()
	for _, want := range []string{"10% ITP", "€25,000.00", "€750.00", "€3,750.00", "€30,500.00", "€280,500.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("preview does not contain %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "Connecting Commodities") || strings.Contains(body, "Mortgage Arrangement Fees") {
		t.Fatal("resale preview without mortgage must not show optional rows")
	}
	if strings.Contains(body, "<html") {
		t.Fatal("preview must render the partial only")
	}

	count, err := env.store.CountCalculations(context.Background())
	if err != nil {
		t.Fatalf("count calculations: %v", err)
	}
	if count != 0 {
		t.Fatalf("preview must not persist, found %d logs", count)
	}
}

func TestCalculatorPreviewNewBuildShowsOptionalRows(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, postForm("/calculator/preview", calculatorValues("300000", "new_build", "murcia", "1")), nil)
	body := rr.Body.String()
	for _, want := range []string{"10% IVA + 1.5% AJD", "Connecting Commodities", "Mortgage Arrangement Fees", "€34,500.00", "€1,500.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("preview does not contain %q:\n%s", want, body)
		}
	}
}

func TestCalculatorPreviewNoResult(t *testing.T) {
	env := newTestEnv(t)

	for _, price := range []string{"", "0", "-100", "abc", "1e3000000", "1000000000001"} {
		rr := env.do(t, postForm("/calculator/preview", calculatorValues(price, "resale", "valencia", "0")), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("price %q: expected 200, got %d", price, rr.Code)
		}
		if rr.Body.Len() != 0 {
			t.Fatalf("price %q: expected empty fragment, got %q", price, rr.Body.String())
		}
	}
}

func TestCalculatorPreviewRejectsUnknownRegion(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, postForm("/calculator/preview", calculatorValues("250000", "resale", "catalonia", "0")), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestCalculatorSubmitPersistsAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	u, cookie := env.createUser(t, "buyer@example.com", "password1", store.RoleUser)

	rr := env.do(t, postForm("/calculator", calculatorValues("250000", "resale", "andalusia", "1")), cookie)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Calculation saved successfully") {
		t.Fatal("expected success message")
	}

	logs, err := env.store.ListCalculations(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list calculations: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 log, got %d", len(logs))
	}
	entry := logs[0]
	if entry.UserID != u.ID || entry.UserEmail != "buyer@example.com" {
		t.Fatalf("log not attributed to user: %+v", entry)
	}
	if entry.Input.Region != pricing.Andalusia || !entry.Input.IncludeMortgage {
		t.Fatalf("unexpected stored input: %+v", entry.Input)
	}

	want, _ := pricing.Calculate(entry.Input)
	if !entry.Breakdown.TotalPurchase.Equal(want.TotalPurchase) || !entry.Breakdown.MortgageFees.Equal(want.MortgageFees) {
		t.Fatalf("stored breakdown differs from engine output: %+v", entry.Breakdown)
	}

	if len(env.sender.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(env.sender.sent))
	}
	if !strings.Contains(env.sender.sent[0].Subject, "buyer@example.com") {
		t.Fatalf("unexpected subject %q", env.sender.sent[0].Subject)
	}
}

func TestCalculatorSubmitAnonymous(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, postForm("/calculator", calculatorValues("150000", "resale", "murcia", "0")), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	logs, err := env.store.ListCalculations(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list calculations: %v", err)
	}
	if len(logs) != 1 || !logs[0].Anonymous() {
		t.Fatalf("expected one anonymous log, got %+v", logs)
	}
	if len(env.sender.sent) != 1 || !strings.Contains(env.sender.sent[0].Subject, "(Unknown)") {
		t.Fatalf("expected an anonymous notification, got %+v", env.sender.sent)
	}
}

func TestCalculatorSubmitInvalidPrice(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, postForm("/calculator", calculatorValues("abc", "resale", "valencia", "0")), nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), invalidPriceMessage) {
		t.Fatal("expected the invalid price message")
	}

	count, err := env.store.CountCalculations(context.Background())
	if err != nil {
		t.Fatalf("count calculations: %v", err)
	}
	if count != 0 || len(env.sender.sent) != 0 {
		t.Fatalf("invalid price must not persist or notify (logs=%d, sent=%d)", count, len(env.sender.sent))
	}
}

func TestCalculatorSubmitRejectsOversizedPrice(t *testing.T) {
	env := newTestEnv(t)

	for _, price := range []string{"1e3000000", "1000000000000.01", "2.5e5"} {
		rr := env.do(t, postForm("/calculator", calculatorValues(price, "resale", "valencia", "0")), nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("price %q: expected 400, got %d", price, rr.Code)
		}
	}

	count, err := env.store.CountCalculations(context.Background())
	if err != nil {
		t.Fatalf("count calculations: %v", err)
	}
	if count != 0 {
		t.Fatalf("oversized prices must not persist, found %d logs", count)
	}
}

func TestCalculatorSubmitNotificationFailureStillSaves(t *testing.T) {
	env := newTestEnv(t)
	env.sender.err = errors.New("mail relay down")

	rr := env.do(t, postForm("/calculator", calculatorValues("250000", "resale", "valencia", "0")), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "Calculation saved but failed to send email notification") {
		t.Fatal("expected the notification warning")
	}
	if !strings.Contains(body, "€280,500.00") {
		t.Fatal("expected the breakdown to be shown")
	}

	count, err := env.store.CountCalculations(context.Background())
	if err != nil {
		t.Fatalf("count calculations: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 log, got %d", count)
	}
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/calculate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAPICalculate(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"price": 250000, "propertyType": "resale", "region": "valencia"}`,
		`{"price": "250000", "propertyType": "resale", "region": "valencia", "includeMortgage": false}`,
	} {
		rr := env.do(t, postJSON(body), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp struct {
			Breakdown *pricing.Breakdown `json:"breakdown"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Breakdown == nil {
			t.Fatal("expected a breakdown")
		}
		if !resp.Breakdown.TotalPurchase.Equal(decimal.NewFromInt(280500)) {
			t.Fatalf("unexpected total purchase %s", resp.Breakdown.TotalPurchase)
		}
		if resp.Breakdown.TaxDisplay != "10% ITP" {
			t.Fatalf("unexpected tax display %q", resp.Breakdown.TaxDisplay)
		}
	}
}

func TestAPICalculateNoResultIsNull(t *testing.T) {
	env := newTestEnv(t)

	for _, price := range []string{`0`, `-5`, `"abc"`, `null`, `1e3000000`, `"1e3000000"`, `1000000000001`} {
		rr := env.do(t, postJSON(`{"price": `+price+`, "propertyType": "new_build", "region": "murcia"}`), nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("price %s: expected 200, got %d", price, rr.Code)
		}

		var resp map[string]json.RawMessage
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if string(resp["breakdown"]) != "null" {
			t.Fatalf("price %s: expected null breakdown, got %s", price, resp["breakdown"])
		}
	}
}

func TestAPICalculateRejectsUnknownEnums(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []string{
		`{"price": 250000, "propertyType": "castle", "region": "valencia"}`,
		`{"price": 250000, "propertyType": "resale", "region": "catalonia"}`,
		`{"price": 250000, "region": "valencia"}`,
		`{"price": 250000, "propertyType": "resale"}`,
		`not json`,
	} {
		rr := env.do(t, postJSON(body), nil)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", body, rr.Code)
		}
	}
}
