package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCSVLoader(t *testing.T) {
	dir := t.TempDir()
	loader := CSVLoader{
		ProductsPath: writeFile(t, dir, "products.csv",
			"ProductKey,CategoryName,SubcategoryName\nP1,Bikes,Road Bikes\nP2,Accessories,Helmets\n,,\n"),
		TransactionsPath: writeFile(t, dir, "sales.csv",
			"Order Number,ProductKey,Order Quantity,Customer_Key,OrderDate,TerritoryKey\n"+
				"SO1,P1,2,C1,2024-01-03,1\nSO2,P2,3.0,C2,2024-01-04,2\n"),
		TerritoriesPath: writeFile(t, dir, "territories.csv",
			"SalesTerritoryKey,Region,Country\n1,Northwest,United States\n2,Central,Germany\n"),
	}

	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Products) != 2 {
		t.Errorf("expected blank product row to be skipped, got %d products", len(ds.Products))
	}
	if len(ds.Transactions) != 2 || ds.Transactions[1].Quantity != 3 {
		t.Errorf("unexpected transactions %+v", ds.Transactions)
	}
	if ds.Transactions[0].OrderNumber != "SO1" || ds.Transactions[0].CustomerKey != "C1" {
		t.Errorf("header normalization failed: %+v", ds.Transactions[0])
	}
	if len(ds.Territories) != 2 || ds.Territories[1].Country != "Germany" {
		t.Errorf("unexpected territories %+v", ds.Territories)
	}
}

func TestCSVLoaderMissingTerritoriesIsOptional(t *testing.T) {
	dir := t.TempDir()
	loader := CSVLoader{
		ProductsPath:     writeFile(t, dir, "products.csv", "ProductKey,CategoryName\nP1,Bikes\n"),
		TransactionsPath: writeFile(t, dir, "sales.csv", "OrderNumber,ProductKey,OrderQuantity,CustomerKey\nSO1,P1,1,C1\n"),
		TerritoriesPath:  filepath.Join(dir, "absent.csv"),
	}
	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Territories) != 0 {
		t.Errorf("expected no territories, got %d", len(ds.Territories))
	}
}

func TestCSVLoaderFailsFast(t *testing.T) {
	dir := t.TempDir()
	products := writeFile(t, dir, "products.csv", "ProductKey,CategoryName\nP1,Bikes\n")

	t.Run("missing column", func(t *testing.T) {
		loader := CSVLoader{
			ProductsPath:     products,
			TransactionsPath: writeFile(t, dir, "no_qty.csv", "OrderNumber,ProductKey,CustomerKey\nSO1,P1,C1\n"),
		}
		_, err := loader.Load(context.Background())
		if !errors.Is(err, ErrMissingColumn) {
			t.Fatalf("expected ErrMissingColumn, got %v", err)
		}
	})

	t.Run("bad quantity", func(t *testing.T) {
		loader := CSVLoader{
			ProductsPath:     products,
			TransactionsPath: writeFile(t, dir, "bad_qty.csv", "OrderNumber,ProductKey,OrderQuantity,CustomerKey\nSO1,P1,two,C1\n"),
		}
		if _, err := loader.Load(context.Background()); err == nil {
			t.Fatal("expected quantity parse error")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		loader := CSVLoader{ProductsPath: filepath.Join(dir, "nope.csv")}
		if _, err := loader.Load(context.Background()); err == nil {
			t.Fatal("expected open error")
		}
	})
}

func TestXLSXLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", "Products"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.NewSheet("Sales"); err != nil {
		t.Fatal(err)
	}
	rows := map[string][][]interface{}{
		"Products": {
			{"ProductKey", "CategoryName", "SubcategoryName"},
			{"P1", "Bikes", "Road Bikes"},
		},
		"Sales": {
			{"OrderNumber", "ProductKey", "OrderQuantity", "CustomerKey", "TerritoryKey"},
			{"SO1", "P1", 4, "C1", "1"},
		},
	}
	for sheet, data := range rows {
		for i, row := range data {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			r := row
			if err := f.SetSheetRow(sheet, cell, &r); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	f.Close()

	loader := XLSXLoader{Path: path, ProductsSheet: "Products", SalesSheet: "Sales", TerritoriesSheet: "Territories"}
	ds, err := loader.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(ds.Products) != 1 || ds.Products[0].Subcategory != "Road Bikes" {
		t.Errorf("unexpected products %+v", ds.Products)
	}
	if len(ds.Transactions) != 1 || ds.Transactions[0].Quantity != 4 {
		t.Errorf("unexpected transactions %+v", ds.Transactions)
	}
	if len(ds.Territories) != 0 {
		t.Errorf("absent territory sheet should be skipped")
	}
}

func TestParseQuantity(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"7", 7, false},
		{"2.0", 2, false},
		{"-1", -1, false},
		{"2.5", 0, true},
		{"abc", 0, true},
	}
	for _, tc := range cases {
		got, err := parseQuantity(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("parseQuantity(%q) = %d, %v", tc.in, got, err)
		}
	}
}
