package kubeutil

import (
	"os"
	"path/filepath"

	xe "github.com/opst/wlconf/pkg/errors"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// KubeconfigPath finds kubeconfig file.
//
// It searches, from the least priority,
//
// - `~/.kube/config`
//
// - environmental variable `KUBECONFIG`
//
// - explicit (typically, given by command line flag `-kubeconfig`)
//
// When the found path does not exist or is a directory, it returns "".
func KubeconfigPath(explicit string) string {
	kubeconfig := ""

	// priority 1 (least): ~/.kube/config
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	// priority 2: envvar KUBECONFIG
	if k := os.Getenv("KUBECONFIG"); k != "" {
		kubeconfig = k
	}

	// priority 3 (most): explicit
	if explicit != "" {
		kubeconfig = explicit
	}

	if kubeconfig != "" {
		stat, err := os.Stat(kubeconfig)
		if err != nil || stat.IsDir() {
			kubeconfig = ""
		}
	}
	return kubeconfig
}

// ConnectToK8s creates *kubernetes.Clientset.
//
// It uses kubeconfig found by KubeconfigPath(explicit).
// When no files are found, it tries to use in-cluster config.
func ConnectToK8s(explicit string) (*kubernetes.Clientset, error) {
	kubeconfig := KubeconfigPath(explicit)

	var config *rest.Config
	var err error
	if kubeconfig == "" {
		// fallback: try in-cluster
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}
	if err != nil {
		return nil, xe.WrapWithNote("loading cluster config", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, xe.Wrap(err)
	}
	return clientset, nil
}
