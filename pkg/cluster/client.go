package cluster

import (
	"context"

	kubeapps "k8s.io/api/apps/v1"
	kubecore "k8s.io/api/core/v1"
	kubeapimeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	k8s "k8s.io/client-go/kubernetes"
)

// subset of k8s.Interface
type K8sClient interface {
	GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error)
	UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error)
	ListDeployments(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error)

	GetDaemonSet(ctx context.Context, namespace string, name string) (*kubeapps.DaemonSet, error)
	UpdateDaemonSet(ctx context.Context, namespace string, ds *kubeapps.DaemonSet) (*kubeapps.DaemonSet, error)
	ListDaemonSets(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.DaemonSet, error)

	GetStatefulSet(ctx context.Context, namespace string, name string) (*kubeapps.StatefulSet, error)
	UpdateStatefulSet(ctx context.Context, namespace string, sts *kubeapps.StatefulSet) (*kubeapps.StatefulSet, error)
	ListStatefulSets(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.StatefulSet, error)

	GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error)
	UpdateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error)
	ListServices(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Service, error)
}

// A wrapper for k8s.Interface; because it does not prefer method chain-style invocations of that type.
type k8sClient struct {
	client k8s.Interface
}

// type check: k8sClient implements K8sClient
var _ K8sClient = &k8sClient{}

// WrapK8sClient wraps a clientset.
//
// Both *k8s.Clientset and the fake clientset can be passed.
func WrapK8sClient(c k8s.Interface) K8sClient {
	return &k8sClient{client: c}
}

func (k *k8sClient) GetDeployment(ctx context.Context, namespace string, name string) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) UpdateDeployment(ctx context.Context, namespace string, depl *kubeapps.Deployment) (*kubeapps.Deployment, error) {
	return k.client.AppsV1().Deployments(namespace).Update(ctx, depl, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) ListDeployments(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.Deployment, error) {
	resp, err := k.client.AppsV1().Deployments(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetDaemonSet(ctx context.Context, namespace string, name string) (*kubeapps.DaemonSet, error) {
	return k.client.AppsV1().DaemonSets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) UpdateDaemonSet(ctx context.Context, namespace string, ds *kubeapps.DaemonSet) (*kubeapps.DaemonSet, error) {
	return k.client.AppsV1().DaemonSets(namespace).Update(ctx, ds, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) ListDaemonSets(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.DaemonSet, error) {
	resp, err := k.client.AppsV1().DaemonSets(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetStatefulSet(ctx context.Context, namespace string, name string) (*kubeapps.StatefulSet, error) {
	return k.client.AppsV1().StatefulSets(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) UpdateStatefulSet(ctx context.Context, namespace string, sts *kubeapps.StatefulSet) (*kubeapps.StatefulSet, error) {
	return k.client.AppsV1().StatefulSets(namespace).Update(ctx, sts, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) ListStatefulSets(ctx context.Context, namespace string, labelSelector string) ([]kubeapps.StatefulSet, error) {
	resp, err := k.client.AppsV1().StatefulSets(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (k *k8sClient) GetService(ctx context.Context, namespace string, name string) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Get(ctx, name, kubeapimeta.GetOptions{})
}

func (k *k8sClient) UpdateService(ctx context.Context, namespace string, svc *kubecore.Service) (*kubecore.Service, error) {
	return k.client.CoreV1().Services(namespace).Update(ctx, svc, kubeapimeta.UpdateOptions{})
}

func (k *k8sClient) ListServices(ctx context.Context, namespace string, labelSelector string) ([]kubecore.Service, error) {
	resp, err := k.client.CoreV1().Services(namespace).List(ctx, kubeapimeta.ListOptions{LabelSelector: labelSelector})
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}
