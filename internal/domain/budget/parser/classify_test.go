package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		item string
		want ItemType
	}{
		{"work beats material", "電纜安裝", TypeWork},
		{"work beats equipment", "攝影機安裝測試", TypeWork},
		{"equipment beats material", "配線機櫃", TypeEquipment},
		{"equipment", "網路交換器", TypeEquipment},
		{"latin keyword", "UPS 10kVA", TypeEquipment},
		{"material", "PVC管", TypeMaterial},
		{"material suffix keyword", "鍍鋅鋼管", TypeMaterial},
		{"fallback", "混凝土", TypeMaterial},
		{"case sensitive", "ups 10kVA", TypeMaterial},
		{"empty", "", TypeMaterial},
		{"relocation verb", "既有設備移設", TypeWork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.item))
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier([]Rule{
		{Type: TypeEquipment, Keywords: []string{"泵"}},
		{Type: TypeWork, Keywords: nil},
		{Type: TypeWork, Keywords: []string{"施工"}},
	})

	assert.Equal(t, TypeEquipment, c.Classify("抽水泵施工"))
	assert.Equal(t, TypeWork, c.Classify("基礎施工"))
	assert.Equal(t, TypeMaterial, c.Classify("砂"))
}

func TestClassifier_ConcurrentUse(t *testing.T) {
	c := NewClassifier(DefaultRules())
	names := []string{"電纜安裝", "交換器", "鋼管", "混凝土"}
	want := []ItemType{TypeWork, TypeEquipment, TypeMaterial, TypeMaterial}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				k := j % len(names)
				assert.Equal(t, want[k], c.Classify(names[k]))
			}
		}()
	}
	wg.Wait()
}
