package diag

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_listener_test.go github.com/oscilla-animator/oscilla-core/diag Listener

func TestDiag(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Diag Suite")
}
