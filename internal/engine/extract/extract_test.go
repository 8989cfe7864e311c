package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_MixedSources(t *testing.T) {
	src := `import Stripe from "npm:stripe@14";
const foo = Deno.env.get("FOO");
const bar = process.env.BAR;
`
	assert.Equal(t, []string{"stripe"}, ExtractDependencies(src).Sorted())
	assert.Equal(t, []string{"BAR", "FOO"}, ExtractEnvVariables(src).Sorted())
}

func TestExtractDependencies(t *testing.T) {
	src := `import { createClient } from "https://esm.sh/@supabase/supabase-js@2.39.3";
import { Application } from "https://deno.land/x/oak@v12.6.1/mod.ts";
import "https://deno.land/x/dotenv/load.ts";
import { encode } from "https://deno.land/std@0.177.0/encoding/base64.ts";
import { serve } from "https://deno.land/std@0.168.0/http/server.ts";
import { z } from 'jsr:@zod/zod@^3';
import { helper } from "../_shared/helper.ts";
const openai = new OpenAI({ apiKey: "x" });
`
	got := ExtractDependencies(src)
	assert.Equal(t, []string{"@std/encoding", "@supabase/supabase-js", "@zod/zod", "koa", "openai"}, got.Sorted())
}

func TestExtractDependencies_StdHTTPBindings(t *testing.T) {
	src := `import { serve, Status } from "https://deno.land/std@0.168.0/http/mod.ts";
import { getCookies } from "https://deno.land/std@0.168.0/http/cookie.ts";
import { serve as listen } from "https://deno.land/x/sift@0.6.0/mod.ts";
`
	assert.Equal(t, []string{"@std/http", "sift"}, ExtractDependencies(src).Sorted())
	assert.Empty(t, ExtractDependencies(`import { serve } from "https://deno.land/x/sift@0.6.0/mod.ts";`))
}

func TestExtractDependencies_UsageSignatureWithoutImport(t *testing.T) {
	src := `const supabase = createClient(Deno.env.get("SUPABASE_URL")!, key);`
	assert.True(t, ExtractDependencies(src).Has("@supabase/supabase-js"))
}

func TestExtractEnvVariables(t *testing.T) {
	src := "const a = Deno.env.get('SINGLE');\n" +
		"const b = Deno.env.get(`TEMPLATE`);\n" +
		"const c = Deno.env.get(`PREFIX_${name}`);\n" +
		"const d = process.env[\"BRACKET\"];\n" +
		"const e = import.meta.env.VITE_API;\n" +
		"// deployed with SUPABASE_SERVICE_ROLE_KEY\n"
	got := ExtractEnvVariables(src)
	assert.Equal(t, []string{"BRACKET", "SINGLE", "SUPABASE_SERVICE_ROLE_KEY", "TEMPLATE", "VITE_API"}, got.Sorted())
}

func TestExtract_Idempotent(t *testing.T) {
	src := `import x from "npm:zod@3"; const k = Deno.env.get("K");`
	assert.Equal(t, ExtractDependencies(src), ExtractDependencies(src))
	assert.Equal(t, ExtractEnvVariables(src), ExtractEnvVariables(src))
}

func TestExtract_NoMatchesOnGarbage(t *testing.T) {
	assert.Empty(t, ExtractDependencies("npm: \"npm:\" '' ``"))
	assert.Empty(t, ExtractEnvVariables("Deno.env.get( process.env[ ]"))
}

func TestAnalyzeFunction(t *testing.T) {
	files := []SourceFile{
		{Path: "hello/index.ts", Text: `import { cors } from "../_shared/cors.ts"; const k = Deno.env.get("KEY_A");`},
		{Path: "hello/db.ts", Text: `import postgres from "https://deno.land/x/postgres@v0.17.0/mod.ts"; process.env.KEY_B;`},
	}
	info := AnalyzeFunction("hello", "hello/index.ts", files)
	assert.Equal(t, "hello", info.Name)
	assert.Equal(t, []string{"hello/index.ts", "hello/db.ts"}, info.Files)
	assert.Equal(t, []string{"postgres"}, info.Dependencies.Sorted())
	assert.Equal(t, []string{"KEY_A", "KEY_B"}, info.EnvVars.Sorted())
	assert.True(t, info.UsesShared)

	other := AnalyzeFunction("other", "other/index.ts", []SourceFile{
		{Path: "other/index.ts", Text: `import Stripe from "npm:stripe@14"; Deno.env.get("KEY_A");`},
	})
	assert.False(t, other.UsesShared)

	deps, vars := Aggregate([]FunctionInfo{info, other})
	assert.Equal(t, []string{"postgres", "stripe"}, deps.Sorted())
	assert.Equal(t, []string{"KEY_A", "KEY_B"}, vars.Sorted())
}
