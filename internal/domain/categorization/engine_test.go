package categorization

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_DefaultRules(t *testing.T) {
	engine := NewDefaultEngine()

	tests := []struct {
		description string
		want        string
	}{
		{"UBER TRIP HELP.UBER.COM", Transporte},
		{"UBER EATS SANTIAGO", Comida},
		{"GOOGLE PLAY APPS", Servicios},
		{"YOUTUBE PREMIUM", Servicios},
		{"GOOGLE *CLOUD", Servicios},
		{"VENDING STORE LAS CONDES", Comida},
		{"INATTIBURGER PROVIDENCIA", Comida},
		{"TOTTUS KENNEDY", Comida},
		{"TECNOMAS SPA", Tecnologia},
		{"PC WEB EXPRESS", Tecnologia},
		{"SUPLETECH LTDA", Tecnologia},
		{"MOVIRED RECARGA", Transporte},
		{"TRANSVIP AEROPUERTO", Transporte},
		{"EXPRESS PLAZA", Transporte},
		{"WHOOSH SCOOTER", Transporte},
		{"PAYPAL *TWITCHINTER", Entretenimiento},
		{"STEAMGAMES.COM 4259522", Entretenimiento},
		{"DISCORD* NITRO", Entretenimiento},
		{"MACH PAGO", Transferencias},
		{"TRANSFERENCIA A TERCEROS", Transferencias},
		{"TRANSF INTERNET", Transferencias},
		{"SUWIE COMISION", ComisionesArte},
		{"LIBRERIA ANTARTICA", Cultura},
		{"FERIA DEL LIBRO", Cultura},
		{"LMX DIGITAL LICENSE", LicenciasTrabajo},
		{"PAYPAL *EBAY", Otros},
		{"FARMACIA CRUZ VERDE", Otros},
		{"", Otros},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.Classify(tt.description))
		})
	}
}

func TestEngine_RuleOrder(t *testing.T) {
	engine := NewDefaultEngine()

	t.Run("earlier rule wins when two match", func(t *testing.T) {
		// matches rule 1 (uber trip) and rule 9 (transf)
		res, ok := engine.Match("uber trip transf")
		require.True(t, ok)
		assert.Equal(t, 1, res.Rule)
		assert.Equal(t, Transporte, res.Category)
	})

	t.Run("combined rule needs every keyword", func(t *testing.T) {
		res, ok := engine.Match("PAYPAL TWITCH")
		require.True(t, ok)
		assert.Equal(t, 7, res.Rule)
		assert.ElementsMatch(t, []string{"paypal", "twitch"}, res.Keywords)

		_, ok = engine.Match("PAYPAL")
		assert.False(t, ok)
		assert.Equal(t, Otros, engine.Classify("TWITCH SUB"))
	})

	t.Run("combined rule beats later broader rule", func(t *testing.T) {
		assert.Equal(t, Entretenimiento, engine.Classify("paypal twitch transfer"))
	})

	t.Run("reports the keyword that matched", func(t *testing.T) {
		res, ok := engine.Match("Cargo YouTube")
		require.True(t, ok)
		assert.Equal(t, []string{"youtube"}, res.Keywords)
	})
}

func TestEngine_Deterministic(t *testing.T) {
	engine := NewDefaultEngine()
	in := "Compra UBER EATS y TOTTUS"

	first := engine.Classify(in)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, engine.Classify(in))
	}
	assert.Equal(t, Comida, first)
}

func TestEngine_CaseInsensitive(t *testing.T) {
	engine := NewDefaultEngine()
	assert.Equal(t, Comida, engine.Classify("uber eats"))
	assert.Equal(t, Comida, engine.Classify("Uber Eats"))
	assert.Equal(t, Comida, engine.Classify("UBER EATS"))
}

func TestEngine_Empty(t *testing.T) {
	engine := NewEngine(nil, "")

	assert.Equal(t, 0, engine.RuleCount())
	assert.Equal(t, Otros, engine.Fallback())
	assert.Equal(t, Otros, engine.Classify("ANY TEXT"))
}

func TestEngine_Rebuild(t *testing.T) {
	engine := NewEngine(nil, "Sin categoría")
	assert.Equal(t, "Sin categoría", engine.Classify("CAFE"))

	engine.Build([]Rule{
		{Category: Comida, Any: []string{"  Cafe "}},
		{Category: Otros},
	})

	assert.Equal(t, 2, engine.RuleCount())
	assert.Equal(t, Comida, engine.Classify("CAFE ALTO"))
	assert.Equal(t, "Sin categoría", engine.Classify("PANADERIA"))
}

func TestEngine_ConcurrentClassify(t *testing.T) {
	engine := NewDefaultEngine()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, Comida, engine.Classify("UBER EATS"))
				assert.Equal(t, Otros, engine.Classify("PAYPAL"))
			}
		}()
	}
	wg.Wait()
}

func TestIsKnown(t *testing.T) {
	for _, c := range Categories {
		assert.True(t, IsKnown(c), c)
	}
	assert.False(t, IsKnown("comida"))
	assert.False(t, IsKnown("Viajes"))
}

func BenchmarkEngine_Classify(b *testing.B) {
	engine := NewDefaultEngine()
	input := "COMPRA NAC 27/12/2025 PAYPAL *TWITCHINTER 4029357733 LU"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Classify(input)
	}
}

func BenchmarkEngine_LargeTable(b *testing.B) {
	rules := make([]Rule, 1000)
	for i := range rules {
		rules[i] = Rule{Category: fmt.Sprintf("C%d", i), Any: []string{fmt.Sprintf("merchant_%d", i)}}
	}
	engine := NewEngine(rules, "")
	input := strings.Repeat("x", 40) + " MERCHANT_999"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = engine.Classify(input)
	}
}
