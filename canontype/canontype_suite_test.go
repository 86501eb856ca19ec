package canontype

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestCanontype(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Canontype Suite")
}
