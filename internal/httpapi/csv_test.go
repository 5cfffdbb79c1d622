package httpapi

import (
	"strings"
	"testing"
)

func TestParseRowsWithHeader(t *testing.T) {
	csv := "address,unit\n" +
		"\"41 SE 5th St, Miami, FL 33131\",2114\n" +
		"\"100 Biscayne Blvd, Miami, FL 33132\",\n"

	batch, err := ParseRows(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 {
		t.Fatalf("rows = %d", len(batch))
	}
	if batch[0].Address != "41 SE 5th St, Miami, FL 33131" || batch[0].Unit != "2114" {
		t.Errorf("row 0 = %+v", batch[0])
	}
	if batch[1].Unit != "" {
		t.Errorf("row 1 = %+v, want no unit", batch[1])
	}
}

func TestParseRowsBareLines(t *testing.T) {
	csv := "\"41 SE 5th St Apt. #2114, Miami, FL 33131\"\n" +
		"\"100 Biscayne Blvd, Miami, FL 33132\"\n"

	batch, err := ParseRows(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 {
		t.Fatalf("rows = %d", len(batch))
	}
	if batch[0].Unit != "2114" {
		t.Errorf("row 0 = %+v, unit token must be parsed from the line", batch[0])
	}
	if strings.Contains(batch[0].Address, "2114") {
		t.Errorf("row 0 address %q still carries the unit", batch[0].Address)
	}
}

func TestParseRowsHeaderUnitOverridesToken(t *testing.T) {
	csv := "service address,apt\n" +
		"\"41 SE 5th St #900, Miami, FL\",2114\n"

	batch, err := ParseRows(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].Unit != "2114" {
		t.Errorf("batch = %+v, unit column must win over the address token", batch)
	}
}

func TestParseRowsSkipsEmptyLines(t *testing.T) {
	csv := "address\n\"A ST, Miami, FL\"\n\"\"\n\"B ST, Miami, FL\"\n"

	batch, err := ParseRows(strings.NewReader(csv))
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 {
		t.Errorf("rows = %d, empty lines must be dropped", len(batch))
	}
}

func TestParseRowsEmptyInput(t *testing.T) {
	batch, err := ParseRows(strings.NewReader(""))
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 0 {
		t.Errorf("rows = %d", len(batch))
	}
}

func TestParseRowsMalformed(t *testing.T) {
	if _, err := ParseRows(strings.NewReader("\"unterminated\n")); err == nil {
		t.Fatal("expected an error for malformed csv")
	}
}
