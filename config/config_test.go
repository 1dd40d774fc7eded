package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"testing"
)

const testconf = "testconfig"

func TestConfig(t *testing.T) {

	Config = nil

	ioutil.WriteFile(testconf, []byte(`{
    "Headless": true
}`), 0644)

	defer func() {
		if err := os.Remove(testconf); err != nil {
			fmt.Print("Could not remove test config file:", err.Error())
		}
	}()

	if err := LoadConfigFile(testconf); err != nil {
		t.Error(err)
		return
	}

	if res := Str("Headless"); res != "true" {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Bool("Headless"); !res {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Int(GoldenPort); fmt.Sprint(res) != fmt.Sprint(DefaultConfig[GoldenPort]) {
		t.Error("Unexpected result:", res)
		return
	}

	LoadDefaultConfig()

	if res := Str("Headless"); res != "false" {
		t.Error("Unexpected result:", res)
		return
	}

	Config[GoldenPort] = "not-a-number"

	if res := Int(GoldenPort); res != DefaultConfig[GoldenPort] {
		t.Error("Unexpected result:", res)
		return
	}
}

func TestLoadEnv(t *testing.T) {

	LoadDefaultConfig()

	os.Setenv("GOLDEN_PORT", "9999")
	defer os.Unsetenv("GOLDEN_PORT")

	LoadEnv([]string{"--headless"})

	if res := Int(GoldenPort); res != 9999 {
		t.Error("Unexpected result:", res)
		return
	}

	if res := Bool(Headless); !res {
		t.Error("Unexpected result:", res)
		return
	}
}
